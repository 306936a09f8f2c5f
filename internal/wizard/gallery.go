package wizard

import (
	"context"
	"fmt"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/google/uuid"
)

// MaxGalleryImages caps the reference images stored per project.
const MaxGalleryImages = 10

func galleryChoices(projectID string) []Choice {
	return []Choice{
		{Label: "✅ Finish", Command: FinishGallery(projectID)},
		{Label: "⏭ Skip", Command: SkipStep(StepGallery, projectID)},
	}
}

func (w *Wizard) enterGallery(ctx context.Context, upd Update, p *domain.Project) error {
	if err := w.putSession(ctx, upd, session.NewAwaitingUpload(p.ID)); err != nil {
		return err
	}
	return w.prompt(ctx, upd,
		fmt.Sprintf("🖼 Send up to %d reference images that show the look you want for your articles.", MaxGalleryImages),
		galleryChoices(p.ID))
}

func (w *Wizard) saveImages(ctx context.Context, upd Update, id string, images []llm.Image) error {
	p, ok, err := w.current(ctx, upd, id, StepGallery)
	if err != nil || !ok {
		return err
	}
	have, err := w.images.CountByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("counting images: %w", err)
	}
	saved := 0
	for _, img := range images {
		if have+saved >= MaxGalleryImages {
			break
		}
		if len(img.Data) == 0 {
			continue
		}
		err := w.images.Add(ctx, &domain.ReferenceImage{
			ID:        uuid.New().String(),
			ProjectID: p.ID,
			Data:      img.Data,
			MimeType:  img.MimeType,
			CreatedAt: w.now(),
		})
		if err != nil {
			return fmt.Errorf("saving image: %w", err)
		}
		saved++
	}
	text := fmt.Sprintf("Saved %d image(s), %d in total.", saved, have+saved)
	if saved < len(images) {
		text += fmt.Sprintf(" The gallery holds at most %d.", MaxGalleryImages)
	}
	return w.prompt(ctx, upd, text, galleryChoices(p.ID))
}

func (w *Wizard) finishGallery(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepGallery)
	if err != nil || !ok {
		return err
	}
	n, err := w.images.CountByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("counting images: %w", err)
	}
	if n == 0 {
		return w.prompt(ctx, upd, "No images yet. Send at least one, or skip this step.", galleryChoices(p.ID))
	}
	w.clearSessionFor(ctx, upd, p.ID)
	step, _ := StepByNumber(StepGallery)
	return w.complete(ctx, upd, p.ID, step, pathNormal, nil)
}

// enterVisualStyle describes the uploaded references, or falls back to the
// default style when there are none.
func (w *Wizard) enterVisualStyle(ctx context.Context, upd Update, p *domain.Project) error {
	step, _ := StepByNumber(StepVisualStyle)
	stored, err := w.images.ListByProject(ctx, p.ID, llm.MaxDescribeImages)
	if err != nil {
		return w.fail(ctx, upd, p.ID, step, err)
	}

	style := DefaultStylePrompt
	if len(stored) > 0 && w.vision != nil {
		w.animate(ctx, upd, AnimationThinking, "Studying your reference images…")
		images := make([]llm.Image, len(stored))
		for i, img := range stored {
			images[i] = llm.Image{Data: img.Data, MimeType: img.MimeType}
		}
		style, err = w.vision.DescribeImages(ctx, visualStyleInstruction, images)
		if err != nil {
			return w.fail(ctx, upd, p.ID, step, err)
		}
		_ = w.say(ctx, upd, "🎨 Visual style:\n"+style)
	} else if len(stored) > 0 {
		w.log.InfoContext(ctx, "vision_not_configured", "project_id", p.ID)
	}

	return w.complete(ctx, upd, p.ID, step, pathNormal, func(p *domain.Project) error {
		p.StylePrompt = style
		p.StyleNegativePrompt = DefaultStyleNegativePrompt
		return nil
	})
}

func (w *Wizard) enterTextStyle(ctx context.Context, upd Update, p *domain.Project) error {
	step, _ := StepByNumber(StepTextStyle)
	w.animate(ctx, upd, AnimationThinking, "Working out your writing style…")
	style, err := w.generate(ctx, llm.TaskTextStyle, textStyleSystemPrompt, textStylePrompt(p))
	if err != nil {
		return w.fail(ctx, upd, p.ID, step, err)
	}
	_ = w.say(ctx, upd, "✍️ Writing style:\n"+style)
	return w.complete(ctx, upd, p.ID, step, pathNormal, func(p *domain.Project) error {
		p.TextStylePrompt = style
		return nil
	})
}
