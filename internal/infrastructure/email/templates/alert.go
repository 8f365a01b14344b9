// Package templates provides HTML email content for sysop notifications.
package templates

import "fmt"

// EngineAlertProps holds the values interpolated into the engine alert email.
type EngineAlertProps struct {
	ErrorKind string
	Message   string
	Host      string
}

// GetEngineAlertContent composes the body of the engine availability alert.
func GetEngineAlertContent(props EngineAlertProps) string {
	return fmt.Sprintf(`
  <h2 style="color:#1a202c;margin-bottom:16px;">Rendering engine unavailable</h2>
  <p style="color:#4a5568;line-height:1.6;">
    The diagram rendering engine could not be acquired on <strong>%s</strong>.
    Widgets on this host will stay in a failed state until the engine becomes
    reachable and the affected instances are remounted.
  </p>
  <table style="margin:16px 0;border-collapse:collapse;">
    <tr>
      <td style="padding:4px 12px 4px 0;color:#718096;">Failure kind</td>
      <td style="padding:4px 0;color:#1a202c;"><code>%s</code></td>
    </tr>
    <tr>
      <td style="padding:4px 12px 4px 0;color:#718096;">Detail</td>
      <td style="padding:4px 0;color:#1a202c;">%s</td>
    </tr>
  </table>
  <p style="color:#718096;font-size:13px;">
    Only the first acquisition failure triggers this alert; check the engine
    channel logs for subsequent attempts.
  </p>`, props.Host, props.ErrorKind, props.Message)
}

// EmailLayoutProps wraps content in the shared email frame.
type EmailLayoutProps struct {
	Content string
}

// GetEmailLayout wraps content in the standard layout.
func GetEmailLayout(props EmailLayoutProps) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f7fafc;font-family:-apple-system,Segoe UI,sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:32px 24px;background:#ffffff;">
    %s
    <hr style="border:none;border-top:1px solid #e2e8f0;margin:24px 0;" />
    <p style="color:#a0aec0;font-size:12px;">diagram-go &middot; At Risk Media</p>
  </div>
</body>
</html>`, props.Content)
}
