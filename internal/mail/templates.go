package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
)

//go:embed templates
var templatesFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl"))
)

const verificationSubject = "Email Verification"

// VerificationLink is the URL a user opens to consume token.
func VerificationLink(baseURL, token string) string {
	return baseURL + "/api/users/verify/" + url.PathEscape(token)
}

// RenderVerification builds the verification message for email.
func RenderVerification(baseURL, email, token string) (Message, error) {
	data := struct{ Link string }{Link: VerificationLink(baseURL, token)}

	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, "verification.txt.tmpl", data); err != nil {
		return Message{}, err
	}

	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "verification.html.tmpl", data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      email,
		Subject: verificationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
