// Package video проверяет ссылки на видео уроков.
package video

import (
	"net/url"
	"strings"
)

// ErrMessage — текст ошибки для поля video.
const ErrMessage = "Incorrect YouTube URL"

var allowedHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtu.be":                 {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
}

// IsAllowed сообщает, ведёт ли ссылка на разрешённый видеохостинг.
func IsAllowed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, ok := allowedHosts[strings.ToLower(u.Hostname())]
	return ok
}
