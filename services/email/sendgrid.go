package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

// SendgridService sends emails through the SendGrid v3 API. It serves QA and PROD.
type SendgridService struct {
	client     *sendgrid.Client
	from       mail.Address
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*SendgridService)(nil) // interface compliance check

func NewSendgridService(conf *core.Config, logger core.Logger) *SendgridService {
	return &SendgridService{
		client:     sendgrid.NewSendClient(conf.Email.SendgridAPIKey),
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *SendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *SendgridService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("emailsvc: rendering %q: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	res, err := svc.client.Send(svc.build(msg))
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("emailsvc: sending %q: %v", msg.Subject, err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("emailsvc: sending %q: status %d: %s", msg.Subject, res.StatusCode, res.Body))
	}
}

// build converts msg to a SendGrid v3 mail, with one personalization holding every recipient.
func (svc *SendgridService) build(msg *core.EmailMessage) *sgmail.SGMailV3 {
	addrs := func(list []mail.Address) []*sgmail.Email {
		out := make([]*sgmail.Email, len(list))
		for i, a := range list {
			out[i] = sgmail.NewEmail(a.Name, a.Address)
		}
		return out
	}

	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(addrs(msg.To)...)
	p.AddCCs(addrs(msg.Cc)...)
	p.AddBCCs(addrs(msg.Bcc)...)

	m := sgmail.NewV3Mail().
		SetFrom(sgmail.NewEmail(svc.from.Name, svc.from.Address)).
		AddPersonalizations(p)
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		m.AddAttachment(sgmail.NewAttachment().
			SetContent(at.Content.String()).
			SetType(at.ContentType).
			SetFilename(at.Filename).
			SetDisposition("attachment"))
	}
	return m
}

// NewService picks the email backend of the environment: SendGrid when a key is configured, the console otherwise.
func NewService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Email.SendgridAPIKey != "" && !conf.TestMode {
		return NewSendgridService(conf, logger)
	}
	return NewConsoleService(conf, logger)
}
