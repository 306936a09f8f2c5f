package wizard

import (
	"context"
	"errors"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/session"
)

var cmsQuestions = map[string]string{
	session.FieldEndpoint: "🔌 Connect WordPress. Send your site's WordPress address, e.g. https://example.com",
	session.FieldLogin:    "Send the WordPress username.",
	session.FieldPassword: "Send an application password (Users → Profile → Application Passwords).",
}

func (w *Wizard) enterCMS(ctx context.Context, upd Update, p *domain.Project) error {
	return w.askCMSField(ctx, upd, p.ID, session.FieldEndpoint, nil)
}

func (w *Wizard) askCMSField(ctx context.Context, upd Update, id, field string, values map[string]string) error {
	if err := w.putSession(ctx, upd, session.NewInCMSForm(id, field, values)); err != nil {
		return err
	}
	return w.prompt(ctx, upd, cmsQuestions[field], []Choice{
		{Label: "⏭ Skip", Command: SkipStep(StepCMS, id)},
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

// cmsField records one form reply. After the last field the credentials are
// verified and saved with the CMS flag.
func (w *Wizard) cmsField(ctx context.Context, upd Update, st session.State, value string) error {
	p, ok, err := w.current(ctx, upd, st.ProjectID, StepCMS)
	if err != nil || !ok {
		return err
	}
	if _, known := cmsQuestions[st.Field]; !known {
		return w.askCMSField(ctx, upd, p.ID, session.FieldEndpoint, nil)
	}
	if value == "" {
		return w.askCMSField(ctx, upd, p.ID, st.Field, st.Values)
	}
	if st.Field == session.FieldEndpoint {
		endpoint, err := cms.NormalizeEndpoint(value)
		if err != nil {
			_ = w.say(ctx, upd, "That address is not valid.")
			return w.askCMSField(ctx, upd, p.ID, st.Field, st.Values)
		}
		value = endpoint
	}

	values := make(map[string]string, len(st.Values)+1)
	for k, v := range st.Values {
		values[k] = v
	}
	values[st.Field] = value
	if next := nextCMSField(st.Field); next != "" {
		return w.askCMSField(ctx, upd, p.ID, next, values)
	}

	creds := domain.CMSCredentials{
		Endpoint: values[session.FieldEndpoint],
		Login:    values[session.FieldLogin],
		Password: values[session.FieldPassword],
	}
	w.animate(ctx, upd, AnimationThinking, "Checking the connection…")
	if err := w.cms.Verify(ctx, creds); err != nil {
		w.log.WarnContext(ctx, "cms_verify_failed", "project_id", p.ID, "endpoint", creds.Endpoint, "error", err)
		_ = w.say(ctx, upd, "⚠️ Connection failed: "+userMessage(err))
		if errors.Is(err, cms.ErrUnauthorized) {
			delete(values, session.FieldPassword)
			return w.askCMSField(ctx, upd, p.ID, session.FieldLogin, values)
		}
		return w.askCMSField(ctx, upd, p.ID, session.FieldEndpoint, nil)
	}

	w.clearSessionFor(ctx, upd, p.ID)
	_ = w.say(ctx, upd, "✅ WordPress connected.")
	step, _ := StepByNumber(StepCMS)
	return w.complete(ctx, upd, p.ID, step, pathNormal, func(p *domain.Project) error {
		p.CMS = &creds
		return nil
	})
}

func nextCMSField(field string) string {
	for i, f := range session.CMSFields {
		if f == field && i+1 < len(session.CMSFields) {
			return session.CMSFields[i+1]
		}
	}
	return ""
}
