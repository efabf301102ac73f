package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"wayfarer/internal/log"
	"wayfarer/internal/metrics"
	"wayfarer/internal/services"
	"wayfarer/internal/validate"
)

const (
	pageTitle = "Login and Registration"

	MsgRegistered     = "Registration successful! Please login."
	MsgEmailTaken     = "Email already registered!"
	MsgRegisterFailed = "Registration failed. Please try again."
	MsgBadCredentials = "Invalid email or password!"
	MsgLoginFailed    = "Something went wrong. Please try again."
	MsgThrottled      = "Too many attempts. Please try again later."
)

type AuthHandler struct {
	Auth     *services.AuthService
	Sessions *session.Store
	Metrics  *metrics.Metrics
	Routes   Routes
}

// Page renders the login/signup form, or sends a signed-in visitor home.
func (h *AuthHandler) Page(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if _, ok := identityFrom(sess); ok {
		return c.Redirect(h.Routes.Home)
	}
	st, found := takeFormState(sess)
	if found {
		if err := sess.Save(); err != nil {
			log.Error(c, "session.save.fail", err, nil)
		}
	}
	return h.renderForm(c, st)
}

func (h *AuthHandler) renderForm(c *fiber.Ctx, st formState) error {
	return render(c, "auth", fiber.Map{
		"Title":  pageTitle,
		"Action": h.Routes.Auth,
		"Pane":   st.Pane,
		"Flash":  st.Flash,
		"Form":   st.Form,
	})
}

// Submit dispatches on the submit button that was pressed.
func (h *AuthHandler) Submit(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if _, ok := identityFrom(sess); ok {
		return c.Redirect(h.Routes.Home, fiber.StatusSeeOther)
	}
	switch {
	case c.FormValue("register") != "":
		return h.register(c, sess)
	case c.FormValue("login") != "":
		return h.login(c, sess)
	}
	return c.Redirect(h.Routes.Auth, fiber.StatusSeeOther)
}

func (h *AuthHandler) register(c *fiber.Ctx, sess *session.Session) error {
	in := services.Registration{
		Name:            validate.Trim(c.FormValue("name")),
		Email:           validate.Trim(c.FormValue("email")),
		Password:        validate.Trim(c.FormValue("password")),
		ConfirmPassword: validate.Trim(c.FormValue("confirm_password")),
	}
	u, err := h.Auth.Register(c.UserContext(), in)

	st := formState{Pane: paneSignup, Form: formValues{Name: in.Name, Email: in.Email}}
	var ve *services.ValidationError
	switch {
	case err == nil:
		st = formState{Pane: paneLogin, Flash: &Flash{Kind: kindSuccess, Text: MsgRegistered}}
		log.Audit(c, "auth.register.success", map[string]any{"email": in.Email, "user_id": u.ID})
		h.Metrics.Observe("register", metrics.OK)
	case errors.As(err, &ve):
		st.Flash = &Flash{Kind: kindWarning, Text: ve.Msg}
		log.Security(c, "auth.register.fail", map[string]any{"reason": "invalid", "field": ve.Field})
		h.Metrics.Observe("register", metrics.Invalid)
	case errors.Is(err, services.ErrConflict):
		st.Flash = &Flash{Kind: kindWarning, Text: MsgEmailTaken}
		log.Security(c, "auth.register.fail", map[string]any{"reason": "duplicate", "email": in.Email})
		h.Metrics.Observe("register", metrics.Conflict)
	default:
		st.Flash = &Flash{Kind: kindDanger, Text: MsgRegisterFailed}
		log.Error(c, "auth.register.error", err, map[string]any{"email": in.Email})
		h.Metrics.Observe("register", metrics.StoreError)
	}
	return h.redirectWithState(c, sess, st)
}

func (h *AuthHandler) login(c *fiber.Ctx, sess *session.Session) error {
	email := validate.Trim(c.FormValue("email"))
	pass := validate.Trim(c.FormValue("password"))

	u, err := h.Auth.Authenticate(c.UserContext(), email, pass)
	if err != nil {
		st := formState{Pane: paneLogin, Flash: &Flash{Kind: kindDanger, Text: MsgBadCredentials}}
		var se *services.StoreError
		if errors.As(err, &se) {
			st.Flash.Text = MsgLoginFailed
			log.Error(c, "auth.login.error", err, map[string]any{"email": email})
			h.Metrics.Observe("login", metrics.StoreError)
		} else {
			log.Security(c, "auth.login.fail", map[string]any{"email": email})
			h.Metrics.Observe("login", metrics.BadCreds)
		}
		return h.redirectWithState(c, sess, st)
	}

	// fresh id on privilege change
	if err := sess.Regenerate(); err != nil {
		return err
	}
	clearFormState(sess)
	putIdentity(sess, u.Identity())
	if err := sess.Save(); err != nil {
		return err
	}
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "user_id": u.ID, "role": u.Role})
	h.Metrics.Observe("login", metrics.OK)

	if u.IsAdmin() {
		return c.Redirect(h.Routes.Admin, fiber.StatusSeeOther)
	}
	return c.Redirect(h.Routes.Home, fiber.StatusSeeOther)
}

// redirectWithState parks the outcome in the session and sends the browser
// back to the form (post/redirect/get).
func (h *AuthHandler) redirectWithState(c *fiber.Ctx, sess *session.Session, st formState) error {
	putFormState(sess, st)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect(h.Routes.Auth, fiber.StatusSeeOther)
}

// Throttled answers a rate-limited POST with the form and a notice.
func (h *AuthHandler) Throttled(c *fiber.Ctx) error {
	log.Security(c, "rate.login.hit", nil)
	h.Metrics.Observe("submit", metrics.Throttled)
	c.Status(fiber.StatusTooManyRequests)
	return h.renderForm(c, formState{Pane: paneLogin, Flash: &Flash{Kind: kindDanger, Text: MsgThrottled}})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	id, _ := identityFrom(sess)
	if err := sess.Destroy(); err != nil {
		return err
	}
	log.Audit(c, "auth.logout", map[string]any{"user_id": id.UserID})
	return c.Redirect(h.Routes.Auth, fiber.StatusSeeOther)
}
