package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Typographer))

var verificationTmpl = template.Must(template.New("verification").Parse(`# {{.AppName}} verification code

Hello {{.Username}},

Thank you for registering. Please use the following verification code to complete your registration:

**{{.Code}}**

The code expires in {{.TTL}}. If you did not request this code, please ignore this email.
`))

var markdownEscaper = strings.NewReplacer(`\`, `\\`, `_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`, `]`, `\]`, `<`, `&lt;`)

// VerificationEmail renders the sign up mail carrying the verification code.
func VerificationEmail(appName, to, username, code string, ttl time.Duration) (Message, error) {
	var src bytes.Buffer
	err := verificationTmpl.Execute(&src, map[string]string{
		"AppName":  markdownEscaper.Replace(appName),
		"Username": markdownEscaper.Replace(username),
		"Code":     code,
		"TTL":      humanDuration(ttl),
	})
	if err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := md.Convert(src.Bytes(), &html); err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}
	return Message{
		To:      to,
		Subject: appName + " | Verification Code",
		Text:    src.String(),
		HTML:    html.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
