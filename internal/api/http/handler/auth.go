package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/guard"
	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/permission"
)

const reasonInvalidCredentials = "invalid_credentials"

var signInMessages = map[string]string{
	guard.CodeSessionExpired:       "Your session has expired. Please sign in again.",
	guard.CodeProfileMissing:       "We could not load your profile. Please sign in again.",
	guard.CodeSessionRequired:      "Please sign in to continue.",
	guard.CodeProfileError:         "Your profile could not be loaded. Please sign in again.",
	guard.CodeProfileInconsistency: "We could not verify your account. Please sign in again.",
	guard.CodeSecurityError:        "A security check failed. Please sign in again.",
	reasonInvalidCredentials:       "Invalid email or password.",
}

// SignInMessage returns the message shown for a sign-in reason code, or an
// empty string for unknown codes.
func SignInMessage(reason string) string {
	return signInMessages[reason]
}

var signInPage = template.Must(template.New("signin").Parse(`<!doctype html>
<html>
<head><title>Sign in</title></head>
<body>
{{if .Message}}<p role="alert">{{.Message}}</p>{{end}}
<form method="post" action="/signin">
<input type="hidden" name="redirect" value="{{.Redirect}}">
<input type="email" name="email" placeholder="Email" required>
<input type="password" name="password" placeholder="Password" required>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

var unauthorizedPage = []byte(`<!doctype html>
<html>
<head><title>Access denied</title></head>
<body><p>You do not have access to this page.</p><a href="/">Home</a></body>
</html>
`)

type signInPageData struct {
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// SignInPage shows the sign-in form with the message for ?reason=.
func (h *Handler) SignInPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := signInPageData{
		Reason:   q.Get("reason"),
		Message:  SignInMessage(q.Get("reason")),
		Redirect: httpx.LocalPath(q.Get("redirect"), ""),
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, data)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := signInPage.Execute(w, data); err != nil {
		h.logger.Error("Handler: failed to render sign-in page",
			"error", err.Error())
	}
}

// Unauthorized is the landing page of suspended and under-privileged users.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusForbidden, "access denied")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write(unauthorizedPage)
}

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Redirect  string `json:"redirect"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return credentials{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
		}
		return c, nil
	}

	if err := r.ParseForm(); err != nil {
		return credentials{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return credentials{
		Email:     r.PostForm.Get("email"),
		Password:  r.PostForm.Get("password"),
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Redirect:  r.PostForm.Get("redirect"),
	}, nil
}

// SignIn checks credentials and stores the new session in the cookie.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}

	c, err := readCredentials(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res := id.Context.SignIn(r.Context(), c.Email, c.Password)
	h.observe("sign_in", res.Err)
	if !res.OK {
		if !httpx.WantsJSON(r) && errors.Is(res.Err, model.ErrInvalidCredentials) {
			q := url.Values{}
			q.Set("reason", reasonInvalidCredentials)
			if redirect := httpx.LocalPath(c.Redirect, ""); redirect != "" {
				q.Set("redirect", redirect)
			}
			http.Redirect(w, r, guard.SignInPath+"?"+q.Encode(), http.StatusSeeOther)
			return
		}
		h.handleError(w, r, res.Err)
		return
	}

	h.cookie.Set(w, id.Client.AccessToken())

	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, httpx.LocalPath(c.Redirect, "/"), http.StatusSeeOther)
		return
	}
	state := id.Context.State()
	id.Permissions.Sync(r.Context(), state.User, state.Profile)
	httpx.JSON(w, http.StatusOK, newMeResponse(state, id.Permissions))
}

// SignUp creates an account. The caller signs in separately.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}

	c, err := readCredentials(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res := id.Context.SignUp(r.Context(), c.Email, c.Password, c.FirstName, c.LastName)
	h.observe("sign_up", res.Err)
	if !res.OK {
		h.handleError(w, r, res.Err)
		return
	}

	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, guard.SignInPath, http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"email": strings.ToLower(strings.TrimSpace(c.Email))})
}

// SignOut ends the session and clears the cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}

	res := id.Context.SignOut(r.Context())
	h.observe("sign_out", res.Err)
	if !res.OK {
		h.handleError(w, r, res.Err)
		return
	}

	h.cookie.Clear(w)
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type meResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *userResponse      `json:"user,omitempty"`
	Profile       *model.Profile     `json:"profile,omitempty"`
	IsAdmin       bool               `json:"is_admin"`
	Permissions   []model.Permission `json:"permissions"`
	Error         string             `json:"error,omitempty"`
}

func newMeResponse(s identity.State, perms *permission.Resolver) meResponse {
	resp := meResponse{
		Authenticated: s.User != nil,
		Profile:       s.Profile,
		IsAdmin:       s.IsAdmin(),
		Permissions:   perms.AllPermissions(),
	}
	if s.User != nil {
		resp.User = &userResponse{ID: s.User.ID, Email: s.User.Email}
	}
	if s.Err != nil {
		resp.Error = "identity could not be loaded"
	}
	return resp
}

// Me describes the identity of the caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, newMeResponse(id.Context.State(), id.Permissions))
}
