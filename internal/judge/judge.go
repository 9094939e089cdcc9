// Package judge implements the demo "online judge" front-end application
// that exercises the server facade: the landing page, health/status/docs
// endpoints, a problem list, and a supplemented user-registration/login
// stub, grounded on original_source/src/main.cpp's route registrations
// (spec.md §1's OVERVIEW names XKOJ as the motivating application) and
// extended per SPEC_FULL.md §1.3.
package judge

import (
	"sync"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/xkoj/pkg/core"
	"github.com/yourusername/xkoj/pkg/reactor"
	"github.com/yourusername/xkoj/pkg/wire"
)

// Problem is one entry of the in-memory problem set main.cpp hardcodes
// into its /api/problems handler.
type Problem struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
	Accepted   int      `json:"accepted"`
	Submitted  int      `json:"submitted"`
}

var problems = []Problem{
	{1, "Hello World", "Easy", []string{"intro", "output"}, 1250, 1500},
	{2, "A+B Problem", "Easy", []string{"math", "intro"}, 980, 1200},
	{3, "Sorting Algorithms", "Medium", []string{"sorting", "algorithms"}, 450, 890},
}

// App bundles the judge routes plus the user-management stub's JWT
// signing key and in-memory user store.
type App struct {
	jwtSecret []byte
	minifier  *minify.M

	mu    sync.Mutex
	users map[string]string // username -> bcrypt hash
}

// New builds a judge App. jwtSecret signs the demo login tokens.
func New(jwtSecret []byte) *App {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	return &App{
		jwtSecret: jwtSecret,
		minifier:  m,
		users:     make(map[string]string),
	}
}

// Register wires every judge route onto app, mirroring main.cpp's
// server.get(...) registration order.
func (j *App) Register(app *core.App, stats *reactor.Stats) {
	app.Get("/", j.handleIndex)
	app.Get("/api/health", j.handleHealth)
	app.Get("/api/status", j.handleStatus(stats))
	app.Get("/api/problems", j.handleProblems)
	app.Get("/api/problems/:id", j.handleProblem)
	app.Get("/api/docs", j.handleDocs)

	app.Post("/api/users/register", j.handleRegister)
	app.Post("/api/users/login", j.handleLogin)
}

func (j *App) handleIndex(req *wire.Request, resp *wire.Response) error {
	out, err := j.minifier.String("text/html", indexHTML)
	if err != nil {
		out = indexHTML
	}
	resp.HTML(out)
	return nil
}

func (j *App) handleHealth(req *wire.Request, resp *wire.Response) error {
	return resp.JSON(map[string]any{
		"status":  "ok",
		"message": "XKOJ is running",
		"version": "1.0.0",
	})
}

func (j *App) handleStatus(stats *reactor.Stats) func(req *wire.Request, resp *wire.Response) error {
	return func(req *wire.Request, resp *wire.Response) error {
		return resp.JSON(map[string]any{
			"statistics": map[string]any{
				"active_connections": stats.ActiveConnections.Load(),
				"total_connections":  stats.TotalConnections.Load(),
				"total_requests":     stats.TotalRequests.Load(),
				"total_responses":    stats.TotalResponses.Load(),
				"bytes_read":         stats.BytesRead.Load(),
				"bytes_written":      stats.BytesWritten.Load(),
			},
		})
	}
}

func (j *App) handleProblems(req *wire.Request, resp *wire.Response) error {
	return resp.JSON(map[string]any{
		"problems": problems,
		"total":    len(problems),
	})
}

func (j *App) handleProblem(req *wire.Request, resp *wire.Response) error {
	id := req.PathParams["id"]
	for _, p := range problems {
		if itoa(p.ID) == id {
			return resp.JSON(p)
		}
	}
	resp.Status(404)
	return resp.JSON(map[string]string{"error": "problem not found"})
}

func (j *App) handleDocs(req *wire.Request, resp *wire.Response) error {
	out, err := j.minifier.String("text/html", docsHTML)
	if err != nil {
		out = docsHTML
	}
	resp.HTML(out)
	return nil
}

// handleRegister is the supplemented user-management stub SPEC_FULL.md
// §1.3 calls for: hash the password with bcrypt and store it keyed by a
// randomdata-flavored display name when none is supplied.
func (j *App) handleRegister(req *wire.Request, resp *wire.Response) error {
	username, _ := req.FormValue("username")
	password, _ := req.FormValue("password")
	if username == "" {
		username = randomdata.SillyName()
	}
	if password == "" {
		resp.Status(400)
		return resp.JSON(map[string]string{"error": "password required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		resp.Status(500)
		return resp.JSON(map[string]string{"error": "could not register"})
	}

	j.mu.Lock()
	if _, exists := j.users[username]; exists {
		j.mu.Unlock()
		resp.Status(409)
		return resp.JSON(map[string]string{"error": "username taken"})
	}
	j.users[username] = string(hash)
	j.mu.Unlock()

	return resp.JSON(map[string]string{"username": username})
}

func (j *App) handleLogin(req *wire.Request, resp *wire.Response) error {
	username, _ := req.FormValue("username")
	password, _ := req.FormValue("password")

	j.mu.Lock()
	hash, ok := j.users[username]
	j.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		resp.Status(401)
		return resp.JSON(map[string]string{"error": "invalid credentials"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(j.jwtSecret)
	if err != nil {
		resp.Status(500)
		return resp.JSON(map[string]string{"error": "could not sign token"})
	}

	return resp.JSON(map[string]string{"token": signed})
}

// ValidateToken is the Validator the auth middleware (pkg/middleware.Auth)
// calls to check bearer tokens issued by handleLogin.
func (j *App) ValidateToken(token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return j.jwtSecret, nil
	})
	return err == nil && parsed.Valid
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>XKOJ</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.container { max-width: 1200px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; }
.nav { display: flex; justify-content: center; gap: 20px; margin-bottom: 30px; }
.nav a { text-decoration: none; color: #007bff; padding: 10px 20px; border: 1px solid #007bff; border-radius: 4px; }
</style>
</head>
<body>
<div class="container">
<h1>XKOJ</h1>
<p>Online judge front-end</p>
<div class="nav">
<a href="/api/health">Health</a>
<a href="/api/problems">Problems</a>
<a href="/api/status">Status</a>
<a href="/api/docs">Docs</a>
</div>
</div>
</body>
</html>`

const docsHTML = `<!DOCTYPE html>
<html>
<head><title>API Documentation</title></head>
<body>
<h1>API Documentation</h1>
<ul>
<li>GET /api/health</li>
<li>GET /api/status</li>
<li>GET /api/problems</li>
<li>GET /api/problems/:id</li>
<li>POST /api/users/register</li>
<li>POST /api/users/login</li>
</ul>
</body>
</html>`
