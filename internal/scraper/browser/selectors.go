package browser

// XPath selectors for the Messenger web client. The class lists are
// generated by the site and change without notice.
const (
	xpathNewMessage = `//a[@aria-label="New message"]`
	xpathDecline    = `//div[@aria-label="Decline"]`

	xpathChatsGrid  = `//div[@aria-label="Chats" and @role="grid"]`
	xpathChatRow    = `.//div[@class="x78zum5 xdt5ytf"]`
	xpathChatLink   = `.//a[@role="link"]`
	xpathUnreadMark = `.//span[@class="x6s0dn4 xzolkzo x12go9s9 x1rnf11y xprq8jg x9f619 x3nfvp2 xl56j7k xwnonoy x170jfvy x1fsd2vl"]`

	xpathConversation = `//div[contains(@aria-label, 'conversation') and @role='grid']`
	xpathMessageRow   = `.//div[@class='x78zum5 xdt5ytf']`
	xpathMessageText  = `.//div[@class='html-div xexx8yu x4uap5 x18d9i69 xkhd6sd x1gslohp x11i5rnm x12nagc x1mh8g0r x1yc453h x126k92a x18lvrbx']`
	xpathSenderAvatar = `.//img[@class='x1rg5ohu x5yr21d xl1xv1r xh8yej3']`
	xpathEmoji        = `.//img[@class='xz74otr']`

	xpathTextbox      = `//div[@role='textbox']`
	xpathMessageBox   = `//div[@aria-label='Message']`
	xpathSendButton   = `//div[@aria-label='Press enter to send']`
	xpathInvalidFile  = `//div[@aria-label='Invalid file format']`
	xpathUploadFailed = `//div[@aria-label='Failed to upload files']`
	xpathCloseDialog  = `.//div[@aria-label='Close']`

	cssEmail       = `#email`
	cssPassword    = `#pass`
	cssLoginButton = `#loginbutton`
	cssFileInput   = `input[type="file"]`

	sessionCookie = "xs"
)

// A conversation usually shows this many rows once fully rendered.
const minVisibleMessages = 13
