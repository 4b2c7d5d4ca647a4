package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"path/filepath"
	"strings"
	"sync"

	"nainong/internal/config"
	"nainong/internal/models"
	"nainong/internal/utils"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailService 发送新评论通知：站长收到每条新评论，被回复者（留了邮箱时）收到回复提醒
type MailService struct {
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	AdminEmail string
	SiteTitle  string
	SiteURL    string
	Enabled    bool

	templatesDir string
	send         sendFunc
	wg           sync.WaitGroup
}

func NewMailService(cfg *config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUser,
		Password:     cfg.SMTPPass,
		From:         cfg.SMTPFrom,
		AdminEmail:   cfg.AdminEmail,
		SiteTitle:    cfg.SiteTitle,
		SiteURL:      cfg.SiteURL,
		Enabled:      enabled,
		templatesDir: filepath.Join(cfg.TemplatesDir, "email"),
		send:         smtp.SendMail,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.SiteTitle, s.From, subject, mime, body))

		err := s.send(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

// Wait blocks until every queued email has been handed to the SMTP server.
func (s *MailService) Wait() {
	s.wg.Wait()
}

func (s *MailService) parseTemplate(templateName string, data interface{}) (string, error) {
	path := filepath.Join(s.templatesDir, templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

// NotifyComment 在评论创建成功后调用；parent 为 nil 表示顶层评论
func (s *MailService) NotifyComment(post *models.Post, comment *models.Comment, parent *models.Comment) {
	if !s.Enabled {
		return
	}
	link := fmt.Sprintf("%s/posts/%s#comment-%s", s.SiteURL, post.Slug, comment.ID)
	nickname, title := headerText(comment.Nickname), headerText(post.Title)
	commenter := strings.ToLower(strings.TrimSpace(comment.Email))

	if admin := strings.ToLower(strings.TrimSpace(s.AdminEmail)); admin != "" && admin != commenter {
		s.sendCommentMail(s.AdminEmail, "📝 ["+headerText(s.SiteTitle)+"] "+nickname+" 评论了《"+title+"》", comment, parent, post, link)
	}

	if parent == nil || !strings.Contains(parent.Email, "@") {
		return
	}
	to := strings.ToLower(strings.TrimSpace(parent.Email))
	if to == commenter || to == strings.ToLower(strings.TrimSpace(s.AdminEmail)) {
		return
	}
	s.sendCommentMail(parent.Email, "💬 "+nickname+" 回复了你在《"+title+"》下的评论", comment, parent, post, link)
}

func (s *MailService) sendCommentMail(to, subject string, comment, parent *models.Comment, post *models.Post, link string) {
	data := map[string]interface{}{
		"SiteTitle":    s.SiteTitle,
		"Nickname":     comment.Nickname,
		"ArticleTitle": post.Title,
		"ReplyContent": utils.RenderMarkdown(comment.Content),
		"PostLink":     link,
	}
	if parent != nil {
		data["OriginalContent"] = utils.RenderMarkdown(parent.Content)
	}
	body, err := s.parseTemplate("comment.html", data)
	if err != nil {
		log.Printf("Error rendering comment email: %v", err)
		return
	}
	s.sendAsync([]string{to}, subject, body)
}

// headerText 折叠换行和连续空白，防止用户输入拼出额外的邮件头
func headerText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
