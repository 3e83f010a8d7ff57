package email

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Variables значения для подстановки в шаблон письма
type Variables struct {
	Name  string
	Link  string
	Event string
}

var greetingRe = regexp.MustCompile(`(?i)(Hi|Hello) \{name\},?\s*`)

// RenderTemplate подставляет {name}, {link} и {event}. Без имени
// приветствие "Hi {name}," или "Hello {name}," удаляется целиком.
func RenderTemplate(template string, vars Variables) string {
	rendered := template

	if vars.Name != "" {
		rendered = strings.ReplaceAll(rendered, "{name}", vars.Name)
	} else {
		rendered = greetingRe.ReplaceAllString(rendered, "")
		rendered = strings.ReplaceAll(rendered, "{name}", "")
	}

	rendered = strings.ReplaceAll(rendered, "{link}", vars.Link)
	rendered = strings.ReplaceAll(rendered, "{event}", vars.Event)

	return rendered
}

// ConversionSubject тема письма рефереру о новой покупке
const ConversionSubject = "🎉 Someone bought a ticket through your link!"

// ConversionNotificationHTML письмо рефереру о покупке по его ссылке
func ConversionNotificationHTML(referrerName, campaignName string, totalConversions int64) string {
	greeting := "Hi,"
	if referrerName != "" {
		greeting = fmt.Sprintf("Hi %s,", html.EscapeString(referrerName))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #28a745; color: white; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">🎉 New Referral!</h1>
  </div>
  <div style="padding: 30px 20px;">
    <p>%s</p>
    <p>Great news! Someone just purchased a ticket to <strong>%s</strong> through your referral link.</p>
    <div style="background-color: #f0f8ff; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <h3 style="margin: 0 0 10px 0;">Your Stats</h3>
      <p style="margin: 5px 0;"><strong>Total Conversions:</strong> %d</p>
    </div>
    <p>Keep sharing to invite more friends!</p>
    <p style="margin-top: 30px;">See you at the event!</p>
  </div>
</body>
</html>`, greeting, html.EscapeString(campaignName), totalConversions)
}

// DefaultInviteSubject тема приглашения, если в кампании она не задана
const DefaultInviteSubject = "You're invited!"

// InvitationHTML оборачивает отрендеренный шаблон кампании в письмо
// с уникальной ссылкой. Тело экранируется, переводы строк становятся <br>.
func InvitationHTML(body, link, campaignName string) string {
	name := html.EscapeString(campaignName)
	text := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
    <div style="background-color: #000000; color: #ffffff; padding: 30px 20px; text-align: center;">
      <h1 style="margin: 0; font-size: 24px;">%s</h1>
    </div>
    <div style="padding: 30px 20px; line-height: 1.6; color: #333333;">%s</div>
    <div style="padding: 30px 20px; background-color: #f0f8ff; text-align: center;">
      <p style="margin: 0 0 15px 0; font-weight: bold;">Your Unique Referral Link:</p>
      <a href="%s" style="font-size: 14px; color: #007bff; word-break: break-all;">%s</a>
      <p style="margin: 15px 0 0 0; font-size: 12px; color: #666666;">Copy this link and share it on your social media</p>
    </div>
    <div style="padding: 30px 20px; text-align: center; color: #666666; font-size: 12px;">
      <p style="margin: 0;">Questions? Just reply to this email.</p>
    </div>
  </div>
</body>
</html>`, name, name, text, html.EscapeString(link), html.EscapeString(link))
}
