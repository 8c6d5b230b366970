package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/cpmappstudio/alef-university-sub001/fs"
)

const emailTemplatesDir = "templates/email"

// mailTemplates holds the parsed email templates, keyed by name without extension.
type mailTemplates struct {
	mu      sync.RWMutex
	baseURL string
	text    map[string]*texttmpl.Template
	html    map[string]*htmltmpl.Template
}

var emailTemplates mailTemplates

func (mt *mailTemplates) execute(name string, data interface{}) (text, html string, err error) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	ctx := ContextData{FrontendBaseURL: mt.baseURL, Data: data}
	var buf bytes.Buffer
	if t := mt.text[name]; t != nil {
		if err = t.Execute(&buf, ctx); err != nil {
			return "", "", errors.Wrapf(err, "executing %s.txt", name)
		}
		text = buf.String()
	}
	if t := mt.html[name]; t != nil {
		buf.Reset()
		if err = t.Execute(&buf, ctx); err != nil {
			return "", "", errors.Wrapf(err, "executing %s.gohtml", name)
		}
		html = buf.String()
	}
	return text, html, nil
}

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text body, used instead of a template
		Attachments []Attachment

		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is the dot of every email template.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent. BodyStr wins over the text template.
func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		text, html, err := emailTemplates.execute(m.TemplateName, m.TemplateData)
		if err != nil {
			return err
		}
		m.TextContent, m.HTMLContent = text, html
	}
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	return nil
}

// Attach base64 encodes the content of r. The content type is sniffed when ct is omitted.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading attachment %s", filename)
	}
	contentType := http.DetectContentType(content)
	if len(ct) > 0 {
		contentType = ct[0]
	}
	encoded := base64.StdEncoding.EncodeToString(content)
	m.Attachments = append(m.Attachments, Attachment{
		Content:     bytes.NewBufferString(encoded),
		ContentType: contentType,
		Filename:    filename,
	})
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates, each with its _base layout.
// Missing keys fail rendering in debug and test mode.
func ParseEmailTemplates(conf *Config, logger Logger) {
	text := make(map[string]*texttmpl.Template)
	html := make(map[string]*htmltmpl.Template)
	missingKey := "missingkey=default"
	if conf.Debug || conf.TestMode {
		missingKey = "missingkey=error"
	}

	paths, err := fs.Glob(appfs.FS, path.Join(emailTemplatesDir, "[^_]*"))
	if err != nil {
		logger.Error("core.ParseEmailTemplates: "+err.Error(), err)
		return
	}
	for _, fp := range paths {
		ext := path.Ext(fp)
		name := strings.TrimSuffix(path.Base(fp), ext)
		base := path.Join(emailTemplatesDir, "_base"+ext)

		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				logger.Error("core.ParseEmailTemplates: "+err.Error(), err)
				continue
			}
			text[name] = t.Option(missingKey)
		case ".gohtml":
			t, err := htmltmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				logger.Error("core.ParseEmailTemplates: "+err.Error(), err)
				continue
			}
			html[name] = t.Option(missingKey)
		}
	}

	emailTemplates.mu.Lock()
	emailTemplates.baseURL = conf.FrontendBaseURL
	emailTemplates.text, emailTemplates.html = text, html
	emailTemplates.mu.Unlock()
}
