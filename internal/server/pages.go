package server

import (
	"fmt"
	"html"
	"net/http"
)

// writeRedirectPage acknowledges a form post and sends the browser back to
// the host dashboard.
func writeRedirectPage(w http.ResponseWriter, target string) {
	t := html.EscapeString(target)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta http-equiv="refresh" content="0;url=%s"><title>Branding updated</title></head>
<body><p>Branding updated. <a href="%s">Return to the dashboard</a>.</p></body>
</html>
`, t, t)
}

// writeHTMLError renders msg for form posts. msg never carries a stack trace.
func writeHTMLError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%d %s</title></head>
<body><h1>%s</h1><p>%s</p></body>
</html>
`, status, http.StatusText(status), http.StatusText(status), html.EscapeString(msg))
}
