package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	NicknameMaxLength = 50
	ContentMinLength  = 5
	ContentMaxLength  = 5000
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateNickname 昵称必填，清洗后不超过 50 个字符
func ValidateNickname(nickname string) string {
	sanitized := SanitizeText(nickname)
	if sanitized == "" {
		return "昵称不能为空"
	}
	if strings.ContainsAny(sanitized, "\r\n") {
		return "昵称不能包含换行"
	}
	if utf8.RuneCountInString(sanitized) > NicknameMaxLength {
		return "昵称不能超过50个字符"
	}
	return ""
}

// ValidateEmail 邮箱可选，填写时需符合 local@domain.tld
func ValidateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	if !emailRegex.MatchString(email) {
		return "邮箱格式不正确"
	}
	return ""
}

// ValidateWebsite 网站可选，填写时必须是 http/https 地址
func ValidateWebsite(website string) string {
	if strings.TrimSpace(website) == "" {
		return ""
	}
	if SanitizeURL(website) == "" {
		return "网站链接格式不正确"
	}
	return ""
}

// ValidateContent checks the length of the HTML-sanitized content.
func ValidateContent(content string) string {
	sanitized := SanitizeHTML(content)
	if sanitized == "" {
		return "评论内容不能为空"
	}
	n := utf8.RuneCountInString(sanitized)
	if n < ContentMinLength {
		return "评论内容至少需要5个字符"
	}
	if n > ContentMaxLength {
		return "评论内容不能超过5000个字符"
	}
	return ""
}
