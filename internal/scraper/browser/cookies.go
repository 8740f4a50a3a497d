package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-rod/rod/lib/proto"
)

// Cookie is the persisted part of a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
}

// Jar holds session cookies keyed by domain.
type Jar map[string][]Cookie

// LoadJar reads a jar file. A missing file yields an empty jar.
func LoadJar(path string) (Jar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Jar{}, nil
		}
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}

	jar := Jar{}
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("parse cookie jar: %w", err)
	}
	return jar, nil
}

// Save writes the jar with owner-only permissions.
func (j Jar) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Len returns the number of cookies across all domains.
func (j Jar) Len() int {
	n := 0
	for _, cookies := range j {
		n += len(cookies)
	}
	return n
}

// Has reports whether any domain holds a cookie with the given name.
func (j Jar) Has(name string) bool {
	for _, cookies := range j {
		for _, c := range cookies {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}

// jarFromNetwork groups browser cookies by domain.
func jarFromNetwork(cookies []*proto.NetworkCookie) Jar {
	jar := Jar{}
	for _, c := range cookies {
		jar[c.Domain] = append(jar[c.Domain], Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return jar
}

// params converts the jar to the form the browser accepts.
func (j Jar) params() []*proto.NetworkCookieParam {
	domains := make([]string, 0, len(j))
	for d := range j {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var out []*proto.NetworkCookieParam
	for _, domain := range domains {
		for _, c := range j[domain] {
			path := c.Path
			if path == "" {
				path = "/"
			}
			out = append(out, &proto.NetworkCookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   domain,
				Path:     path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				Expires:  proto.TimeSinceEpoch(c.Expires),
			})
		}
	}
	return out
}
