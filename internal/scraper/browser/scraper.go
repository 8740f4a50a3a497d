// Package browser drives the Messenger web client through Chrome DevTools.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
)

var (
	// ErrNotLoggedIn is returned when the session is still anonymous after
	// submitting credentials.
	ErrNotLoggedIn = errors.New("login failed")
	// ErrFileRejected is returned when the site refuses an attachment.
	ErrFileRejected = errors.New("file rejected")
)

// Options configures a scraper session.
type Options struct {
	Browser        config.BrowserConfig
	DiagnosticsDir string
	// ClearCookies ignores the stored jar and logs in from scratch.
	ClearCookies bool
}

// Scraper is one logged-in browser session.
type Scraper struct {
	opts     Options
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	log      *zerolog.Logger
}

// Open launches or connects to Chrome, restores cookies and logs in.
func Open(ctx context.Context, opts Options, logger *zerolog.Logger) (*Scraper, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Browser.Timeout <= 0 {
		opts.Browser.Timeout = 15 * time.Second
	}
	if opts.Browser.StartURL == "" {
		opts.Browser.StartURL = "https://www.messenger.com"
	}

	s := &Scraper{opts: opts, log: logger}

	controlURL := opts.Browser.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(opts.Browser.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if opts.Browser.Bin != "" {
			l = l.Bin(opts.Browser.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		s.launcher = l
		logger.Info().Str("url", u).Bool("headless", opts.Browser.Headless).Msg("launched local chrome")
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var err error
	if opts.Browser.Stealth {
		s.page, err = stealth.Page(s.browser)
	} else {
		s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := s.start(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// start restores the session, logging in when the stored cookies are stale.
// Credentials are retried once against an empty jar before giving up.
func (s *Scraper) start(ctx context.Context) error {
	if err := s.navigate(ctx, s.opts.Browser.StartURL); err != nil {
		return err
	}

	if !s.opts.ClearCookies {
		if err := s.loadCookies(ctx); err != nil {
			s.log.Warn().Err(err).Msg("restore cookies failed")
		}
	}

	if !s.loggedIn(ctx) {
		if err := s.login(ctx); err != nil {
			s.log.Warn().Err(err).Msg("login failed, retrying with empty cookie jar")
			if err := s.browser.SetCookies(nil); err != nil {
				return fmt.Errorf("clear cookies: %w", err)
			}
			if err := s.navigate(ctx, s.opts.Browser.StartURL); err != nil {
				return err
			}
			if err := s.login(ctx); err != nil {
				return err
			}
		}
	}

	if err := s.saveCookies(); err != nil {
		s.log.Warn().Err(err).Msg("save cookies failed")
	}
	s.log.Info().Msg("browser session ready")
	return nil
}

// Close shuts down the browser and any launched process.
func (s *Scraper) Close() error {
	var err error
	switch {
	case s.launcher != nil && s.browser != nil:
		err = s.browser.Close()
	case s.page != nil:
		// A remote browser outlives the session; only the tab is ours.
		err = s.page.Close()
	}
	s.cleanupLauncher()
	return err
}

func (s *Scraper) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
}

// bounded returns the page bound to ctx with the configured operation timeout.
func (s *Scraper) bounded(ctx context.Context) (*rod.Page, context.CancelFunc) {
	c, cancel := context.WithTimeout(ctx, s.opts.Browser.Timeout)
	return s.page.Context(c), cancel
}

func (s *Scraper) navigate(ctx context.Context, target string) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	if err := p.Navigate(target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := p.WaitLoad(); err != nil {
		s.log.Debug().Err(err).Str("url", target).Msg("wait load")
	}
	return nil
}

func (s *Scraper) loadCookies(ctx context.Context) error {
	if s.opts.Browser.CookiePath == "" {
		return nil
	}
	jar, err := LoadJar(s.opts.Browser.CookiePath)
	if err != nil {
		return err
	}
	if jar.Len() == 0 {
		return nil
	}
	if err := s.browser.SetCookies(jar.params()); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	s.log.Info().Int("cookies", jar.Len()).Msg("cookies restored")
	return s.Refresh(ctx)
}

func (s *Scraper) saveCookies() error {
	if s.opts.Browser.CookiePath == "" {
		return nil
	}
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	return jarFromNetwork(cookies).Save(s.opts.Browser.CookiePath)
}

// loggedIn requires both the session cookie and the signed-in sidebar.
func (s *Scraper) loggedIn(ctx context.Context) bool {
	cookies, err := s.browser.GetCookies()
	if err != nil || !jarFromNetwork(cookies).Has(sessionCookie) {
		return false
	}
	has, _, err := s.page.Context(ctx).HasX(xpathNewMessage)
	return err == nil && has
}

func (s *Scraper) login(ctx context.Context) error {
	if s.opts.Browser.Username == "" {
		return fmt.Errorf("%w: no credentials configured", ErrNotLoggedIn)
	}

	p, cancel := s.bounded(ctx)
	defer cancel()

	email, err := p.Element(cssEmail)
	if err != nil {
		return fmt.Errorf("%w: email field: %v", ErrNotLoggedIn, err)
	}
	if err := email.Input(s.opts.Browser.Username); err != nil {
		return fmt.Errorf("%w: type email: %v", ErrNotLoggedIn, err)
	}
	pass, err := p.Element(cssPassword)
	if err != nil {
		return fmt.Errorf("%w: password field: %v", ErrNotLoggedIn, err)
	}
	if err := pass.Input(s.opts.Browser.Password); err != nil {
		return fmt.Errorf("%w: type password: %v", ErrNotLoggedIn, err)
	}
	button, err := p.Element(cssLoginButton)
	if err != nil {
		return fmt.Errorf("%w: login button: %v", ErrNotLoggedIn, err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: submit: %v", ErrNotLoggedIn, err)
	}

	// The sidebar renders once the session is established.
	if _, err := p.ElementX(xpathNewMessage); err != nil {
		return fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
	}
	s.log.Info().Str("user", s.opts.Browser.Username).Msg("logged in")
	return nil
}

// CurrentChat returns the ID of the conversation open in the page.
func (s *Scraper) CurrentChat(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return chatIDFromURL(info.URL), nil
}

// Chats lists the sidebar entries in display order.
func (s *Scraper) Chats(ctx context.Context) ([]core.ChatOption, error) {
	p, cancel := s.bounded(ctx)
	defer cancel()

	grid, err := p.ElementX(xpathChatsGrid)
	if err != nil {
		return nil, fmt.Errorf("chat list: %w", err)
	}
	rows, err := grid.ElementsX(xpathChatRow)
	if err != nil {
		return nil, fmt.Errorf("chat rows: %w", err)
	}

	chats := make([]core.ChatOption, 0, len(rows))
	for _, r := range rows {
		has, link, err := r.HasX(xpathChatLink)
		if err != nil || !has {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		id := chatIDFromURL(*href)
		if id == "" {
			continue
		}
		unread, _, _ := r.HasX(xpathUnreadMark)
		chats = append(chats, core.ChatOption{ID: id, Unread: unread})
	}
	return chats, nil
}

// Messages reads the visible conversation. The grid renders lazily, so it
// is polled a few times until enough rows appear.
func (s *Scraper) Messages(ctx context.Context, chatID string) (core.Snapshot, error) {
	p, cancel := s.bounded(ctx)
	defer cancel()

	grid, err := p.ElementX(xpathConversation)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}

	var elements rod.Elements
	for attempt := 0; attempt < 5; attempt++ {
		elements, err = grid.ElementsX(xpathMessageRow)
		if err != nil {
			return nil, fmt.Errorf("message rows: %w", err)
		}
		if len(elements) > minVisibleMessages {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	rows := make([]row, 0, len(elements))
	for _, el := range elements {
		content, ok := messageContent(el)
		if !ok {
			continue
		}
		rows = append(rows, row{Content: content, Sender: messageSender(el)})
	}
	return assignSenders(chatID, rows), nil
}

func messageContent(el *rod.Element) (string, bool) {
	if has, text, err := el.HasX(xpathMessageText); err == nil && has {
		if t, err := text.Text(); err == nil && t != "" {
			return t, true
		}
	}
	if has, img, err := el.HasX(xpathEmoji); err == nil && has {
		if alt, err := img.Attribute("alt"); err == nil && alt != nil && *alt != "" {
			return stripVariationSelectors(*alt), true
		}
	}
	return "", false
}

func messageSender(el *rod.Element) string {
	has, img, err := el.HasX(xpathSenderAvatar)
	if err != nil || !has {
		return ""
	}
	alt, err := img.Attribute("alt")
	if err != nil || alt == nil {
		return ""
	}
	return *alt
}

// OpenChat clicks the sidebar entry for chatID, navigating directly when
// the entry is not rendered.
func (s *Scraper) OpenChat(ctx context.Context, chatID string) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	if !strings.ContainsAny(chatID, `"/`) {
		xpath := fmt.Sprintf(`//a[@role="link" and contains(@href, "/t/%s")]`, chatID)
		if has, link, err := p.HasX(xpath); err == nil && has {
			_ = link.ScrollIntoView()
			if err := link.Click(proto.InputMouseButtonLeft, 1); err == nil {
				return sleep(ctx, 200*time.Millisecond)
			}
		}
	}

	target := strings.TrimRight(s.opts.Browser.StartURL, "/") + "/t/" + chatID
	if err := s.navigate(ctx, target); err != nil {
		return err
	}
	return sleep(ctx, 200*time.Millisecond)
}

// SendMessage types text into the composer of the open chat and submits it.
func (s *Scraper) SendMessage(ctx context.Context, text string) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	box, err := s.composer(p)
	if err != nil {
		return err
	}
	if err := box.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("focus composer: %w", err)
	}

	for _, r := range text {
		if err := p.InsertText(string(r)); err != nil {
			return fmt.Errorf("type: %w", err)
		}
		if err := sleep(ctx, s.opts.Browser.KeyDelay); err != nil {
			return err
		}
	}

	if err := p.KeyActions().Type(input.Enter).Do(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if has, button, err := p.HasX(xpathSendButton); err == nil && has {
		_ = button.Click(proto.InputMouseButtonLeft, 1)
	}
	return nil
}

func (s *Scraper) composer(p *rod.Page) (*rod.Element, error) {
	if has, el, err := p.HasX(xpathTextbox); err == nil && has {
		return el, nil
	}
	el, err := p.ElementX(xpathMessageBox)
	if err != nil {
		return nil, fmt.Errorf("composer: %w", err)
	}
	return el, nil
}

// SendFile attaches the file at path to the open chat and submits it.
func (s *Scraper) SendFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("attachment: %w", err)
	}

	p, cancel := s.bounded(ctx)
	defer cancel()

	field, err := p.Element(cssFileInput)
	if err != nil {
		return fmt.Errorf("file input: %w", err)
	}
	if err := field.SetFiles([]string{abs}); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}

	for _, xpath := range []string{xpathInvalidFile, xpathUploadFailed} {
		if has, dialog, err := p.HasX(xpath); err == nil && has {
			if hasClose, closeBtn, err := dialog.HasX(xpathCloseDialog); err == nil && hasClose {
				_ = closeBtn.Click(proto.InputMouseButtonLeft, 1)
			}
			return fmt.Errorf("%w: %s", ErrFileRejected, filepath.Base(abs))
		}
	}

	if err := p.KeyActions().Type(input.Enter).Do(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Screenshot writes a PNG of the viewport to the diagnostics directory.
func (s *Scraper) Screenshot(ctx context.Context) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	data, err := p.Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	path, err := s.writeDiagnostic("png", data)
	if err != nil {
		return err
	}
	s.log.Info().Str("path", path).Msg("screenshot saved")
	return nil
}

// DumpHTML writes the page markup to the diagnostics directory.
func (s *Scraper) DumpHTML(ctx context.Context) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	html, err := p.HTML()
	if err != nil {
		return fmt.Errorf("page html: %w", err)
	}
	path, err := s.writeDiagnostic("html", []byte(html))
	if err != nil {
		return err
	}
	s.log.Info().Str("path", path).Msg("page dump saved")
	return nil
}

func (s *Scraper) writeDiagnostic(ext string, data []byte) (string, error) {
	dir := s.opts.DiagnosticsDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("diagnostics dir: %w", err)
	}
	path := filepath.Join(dir, diagnosticName(time.Now(), ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func diagnosticName(t time.Time, ext string) string {
	return t.UTC().Format("20060102T150405.000") + "-log." + ext
}

// Refresh reloads the page.
func (s *Scraper) Refresh(ctx context.Context) error {
	p, cancel := s.bounded(ctx)
	defer cancel()

	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		s.log.Debug().Err(err).Msg("wait load after reload")
	}
	return nil
}

// DeclineCall rejects an incoming call banner when one is shown.
func (s *Scraper) DeclineCall(ctx context.Context) error {
	has, button, err := s.page.Context(ctx).HasX(xpathDecline)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("decline call: %w", err)
	}
	s.log.Info().Msg("declined incoming call")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
