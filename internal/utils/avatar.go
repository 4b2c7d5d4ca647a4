package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const gravatarBase = "https://gravatar.loli.net/avatar/"

var avatarColors = []string{"6366f1", "8b5cf6", "ec4899", "f43f5e", "f97316", "eab308", "22c55e", "14b8a6", "0ea5e9", "3b82f6"}

// EmailHash returns the lowercase hex MD5 of the trimmed, lower-cased email.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// GravatarURL 使用国内可访问的 Gravatar 镜像
func GravatarURL(email string, size int) string {
	return fmt.Sprintf("%s%s?s=%d&d=retro", gravatarBase, EmailHash(email), size)
}

// InitialAvatarURL 用昵称首字母生成 SVG 头像（data URL）
func InitialAvatarURL(nickname string, size int) string {
	initial := "?"
	colorIndex := 0
	trimmed := strings.TrimSpace(nickname)
	for _, r := range trimmed {
		initial = string(unicode.ToUpper(r))
		break
	}
	for _, r := range nickname {
		colorIndex = int(r) % len(avatarColors)
		break
	}

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %[1]d %[1]d" width="%[1]d" height="%[1]d">`+
		`<rect width="%[1]d" height="%[1]d" fill="#%[2]s"/>`+
		`<text x="50%%" y="50%%" dominant-baseline="central" text-anchor="middle" font-size="%[3]g" fill="white" font-family="system-ui, -apple-system, sans-serif" font-weight="600">%[4]s</text>`+
		`</svg>`, size, avatarColors[colorIndex], float64(size)*0.45, escapeXMLText(initial))

	return "data:image/svg+xml," + url.PathEscape(svg)
}

// AvatarURL prefers Gravatar when an email is present and falls back to the initial avatar.
func AvatarURL(email, nickname string, size int) string {
	if strings.Contains(email, "@") {
		return GravatarURL(email, size)
	}
	return InitialAvatarURL(nickname, size)
}

func escapeXMLText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
