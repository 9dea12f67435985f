package mailsmodels

import (
	"fmt"

	"github.com/callendar-yojung/pecal-sub002/utils"
)

func PaymentFailed(email string, planName string, retryCount int, maxRetry int) {
	subject := "Subject: Pecal payment failed \r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #2F54EB; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">We could not charge your card</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">The renewal payment for your %s plan failed (attempt %d of %d). We will retry automatically.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<p style="font-weight: bold; color: #2F54EB; text-align:center;">If your card has changed, update it in Settings &gt; Billing before the next attempt.</p>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, planName, retryCount, maxRetry)

	message := []byte(subject + mime + body)
	utils.SendMail(email, message)
}
