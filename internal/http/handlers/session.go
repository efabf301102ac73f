package handlers

import (
	"github.com/gofiber/fiber/v2/middleware/session"

	"wayfarer/internal/domain"
)

// Session keys. Identity keys live until logout or expiry; the form keys are
// consumed by the next render of the auth page.
const (
	keyUserID    = "user_id"
	keyUserName  = "user_name"
	keyUserEmail = "user_email"
	keyUserRole  = "user_role"

	keyFlashText = "flash_text"
	keyFlashKind = "flash_kind"
	keyFormPane  = "form_pane"
	keyFormName  = "form_name"
	keyFormEmail = "form_email"
)

const (
	paneLogin  = "login"
	paneSignup = "signup"

	kindSuccess = "success"
	kindWarning = "warning"
	kindDanger  = "danger"
)

// Routes are the paths the auth flow redirects between.
type Routes struct {
	Auth  string
	Home  string
	Admin string
}

type Flash struct {
	Kind string
	Text string
}

type formValues struct {
	Name  string
	Email string
}

// formState is what one POST hands to the next GET.
type formState struct {
	Pane  string
	Flash *Flash
	Form  formValues
}

func getString(sess *session.Session, key string) string {
	s, _ := sess.Get(key).(string)
	return s
}

func identityFrom(sess *session.Session) (domain.Identity, bool) {
	id := domain.Identity{
		UserID: getString(sess, keyUserID),
		Name:   getString(sess, keyUserName),
		Email:  getString(sess, keyUserEmail),
		Role:   getString(sess, keyUserRole),
	}
	return id, id.UserID != ""
}

func putIdentity(sess *session.Session, id domain.Identity) {
	sess.Set(keyUserID, id.UserID)
	sess.Set(keyUserName, id.Name)
	sess.Set(keyUserEmail, id.Email)
	sess.Set(keyUserRole, id.Role)
}

func putFormState(sess *session.Session, st formState) {
	clearFormState(sess)
	sess.Set(keyFormPane, st.Pane)
	if st.Flash != nil {
		sess.Set(keyFlashText, st.Flash.Text)
		sess.Set(keyFlashKind, st.Flash.Kind)
	}
	if st.Form.Name != "" {
		sess.Set(keyFormName, st.Form.Name)
	}
	if st.Form.Email != "" {
		sess.Set(keyFormEmail, st.Form.Email)
	}
}

// takeFormState reads and removes the pending form state. found is false
// when there was nothing pending, in which case the session is unchanged.
func takeFormState(sess *session.Session) (st formState, found bool) {
	st.Pane = getString(sess, keyFormPane)
	if text := getString(sess, keyFlashText); text != "" {
		st.Flash = &Flash{Kind: getString(sess, keyFlashKind), Text: text}
	}
	st.Form = formValues{Name: getString(sess, keyFormName), Email: getString(sess, keyFormEmail)}
	found = st.Pane != "" || st.Flash != nil || st.Form != formValues{}
	if found {
		clearFormState(sess)
	}
	if st.Pane != paneSignup {
		st.Pane = paneLogin
	}
	return st, found
}

func clearFormState(sess *session.Session) {
	for _, k := range []string{keyFlashText, keyFlashKind, keyFormPane, keyFormName, keyFormEmail} {
		sess.Delete(k)
	}
}
