package mailsmodels

import (
	"fmt"

	"github.com/callendar-yojung/pecal-sub002/utils"
)

func SubscriptionExpired(email string, planName string) {
	subject := "Subject: Your Pecal subscription has expired \r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #2F54EB; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">Your %s subscription has expired</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">We could not charge your registered card after several attempts, so your subscription has been suspended.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<p style="font-weight: bold; color: #2F54EB; text-align:center;">Register a new card in Settings &gt; Billing to resume your plan.</p>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, planName)

	message := []byte(subject + mime + body)
	utils.SendMail(email, message)
}
