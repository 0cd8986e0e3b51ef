package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/post"
	"github.com/matheus3301/postbot/internal/store"
)

const publishedListLimit = 10

func (h *Handler) listPublished(ctx context.Context, t *turn) error {
	reset(t.sess)
	posts, err := h.db.ListPublishedByOwner(t.u.UserID, publishedListLimit)
	if err != nil {
		return fmt.Errorf("list published posts: %w", err)
	}
	if len(posts) == 0 {
		return h.reply(ctx, t, "You have not published any posts yet.", mainMenuKeyboard())
	}

	loc, now := h.cfg.Location(), h.now()
	for _, p := range posts {
		var b strings.Builder
		fmt.Fprintf(&b, "📣 %s · %s\n", escape(h.channelLabel(p.ChannelID)), when(p.PublishedAt, loc, now))
		if p.Text != "" {
			fmt.Fprintf(&b, "📝 %s\n", escape(markup.Excerpt(p.Text, excerptLen)))
		}
		if len(p.Media) > 0 {
			fmt.Fprintf(&b, "🖼 %d media (%s)\n", len(p.Media), p.MediaKind())
		}
		var kb platform.Keyboard
		if ch, ok := h.channelByID(p.ChannelID); ok {
			kb = publishedControls(ch.Key, p.MessageID)
		}
		if err := h.reply(ctx, t, b.String(), kb); err != nil {
			return err
		}
	}
	return nil
}

// loadPublished resolves a channel key and message id to a record. A nil
// record means the user has already been told it is gone.
func (h *Handler) loadPublished(ctx context.Context, t *turn, channelKey, messageID string) (config.Channel, *store.PublishedPost, error) {
	ch, ok := h.cfg.Channel(channelKey)
	if !ok {
		reset(t.sess)
		return ch, nil, h.reply(ctx, t, "That channel is no longer configured.", mainMenuKeyboard())
	}
	rec, err := h.db.GetPublished(ch.ID, messageID)
	if err != nil {
		return ch, nil, fmt.Errorf("load published post: %w", err)
	}
	if rec == nil {
		reset(t.sess)
		return ch, nil, h.reply(ctx, t, "Post not found. It may have been deleted.", mainMenuKeyboard())
	}
	return ch, rec, nil
}

// editingPublished loads the post the session is editing.
func (h *Handler) editingPublished(ctx context.Context, t *turn) (config.Channel, *store.PublishedPost, error) {
	return h.loadPublished(ctx, t, t.sess.EditingChannel, t.sess.EditingMessageID)
}

func (h *Handler) openPublished(ctx context.Context, t *turn, data string) error {
	key, msgID, err := parsePublished(data, prefixPubEdit)
	if err != nil {
		t.answer = "Unknown post"
		return nil
	}
	ch, rec, err := h.loadPublished(ctx, t, key, msgID)
	if rec == nil || err != nil {
		return err
	}
	reset(t.sess)
	t.sess.EditingChannel = ch.Key
	t.sess.EditingMessageID = rec.MessageID
	return h.showPublishedEdit(ctx, t, ch, rec)
}

func (h *Handler) showPublishedEdit(ctx context.Context, t *turn, ch config.Channel, rec *store.PublishedPost) error {
	t.sess.State = StatePublishedEdit
	text := fmt.Sprintf("Editing a post in %s:\n\n%s\nMedia cannot be changed after publishing.",
		escape(ch.Name), summary(rec.Draft(), h.cfg.Location(), h.now()))
	kb := platform.Keyboard{
		row(btn("✏️ Edit text", cbPubText), btn("🔘 Edit buttons", cbPubButtons)),
		row(btn("↩ Back", cbPubBack)),
	}
	return h.reply(ctx, t, text, kb)
}

func (h *Handler) onPublishedCallback(ctx context.Context, t *turn, data string) error {
	switch data {
	case cbPubText:
		t.sess.State = StatePublishedAwaitText
		return h.reply(ctx, t, "Send the new text.", platform.Keyboard{row(btn("↩ Back", cbPubBack))})
	case cbPubButtons:
		_, rec, err := h.editingPublished(ctx, t)
		if rec == nil || err != nil {
			return err
		}
		t.sess.State = StatePublishedAwaitButtons
		var b strings.Builder
		if len(rec.Buttons) > 0 {
			b.WriteString("Current buttons:\n")
			for i, bt := range rec.Buttons {
				fmt.Fprintf(&b, "%d. %s → %s\n", i+1, escape(bt.Label), escape(bt.URL))
			}
			b.WriteString("\nThe new list replaces them.\n")
		}
		b.WriteString(buttonFormatHelp)
		kb := platform.Keyboard{
			row(btn("🧹 Remove all buttons", cbPubClear)),
			row(btn("↩ Back", cbPubBack)),
		}
		return h.reply(ctx, t, b.String(), kb)
	case cbPubClear:
		return h.applyPublishedButtons(ctx, t, nil)
	case cbPubBack:
		ch, rec, err := h.editingPublished(ctx, t)
		if rec == nil || err != nil {
			return err
		}
		return h.showPublishedEdit(ctx, t, ch, rec)
	}
	t.answer = "This menu is no longer active"
	return nil
}

func (h *Handler) onPublishedText(ctx context.Context, t *turn) error {
	if t.u.Text == "" {
		return h.reply(ctx, t, "Send the new text, or /cancel.", nil)
	}
	ch, rec, err := h.editingPublished(ctx, t)
	if rec == nil || err != nil {
		return err
	}

	html := markup.FromEntities(t.u.Text, t.u.Entities)
	if err := h.dispatcher.EditText(ctx, ch, rec, html); err != nil {
		if err := h.reply(ctx, t, deliveryMessage(err), nil); err != nil {
			return err
		}
	} else if err := h.reply(ctx, t, "✅ Text updated.", nil); err != nil {
		return err
	}
	return h.showPublishedEdit(ctx, t, ch, rec)
}

func (h *Handler) onPublishedButtons(ctx context.Context, t *turn) error {
	buttons, err := post.ParseButtons(t.u.Text)
	if err != nil {
		return h.reply(ctx, t, "I could not read any button.\n"+buttonFormatHelp, nil)
	}
	return h.applyPublishedButtons(ctx, t, buttons)
}

func (h *Handler) applyPublishedButtons(ctx context.Context, t *turn, buttons []post.Button) error {
	ch, rec, err := h.editingPublished(ctx, t)
	if rec == nil || err != nil {
		return err
	}
	if err := h.dispatcher.EditButtons(ctx, ch, rec, buttons); err != nil {
		if err := h.reply(ctx, t, deliveryMessage(err), nil); err != nil {
			return err
		}
	} else if err := h.reply(ctx, t, "✅ Buttons updated.", nil); err != nil {
		return err
	}
	return h.showPublishedEdit(ctx, t, ch, rec)
}

func (h *Handler) confirmDeletePublished(ctx context.Context, t *turn, data string) error {
	key, msgID, err := parsePublished(data, prefixPubDelete)
	if err != nil {
		t.answer = "Unknown post"
		return nil
	}
	ch, rec, err := h.loadPublished(ctx, t, key, msgID)
	if rec == nil || err != nil {
		return err
	}
	reset(t.sess)
	t.sess.State = StatePublishedDeleteConfirm
	t.sess.EditingChannel = ch.Key
	t.sess.EditingMessageID = rec.MessageID
	kb := platform.Keyboard{row(
		btn("🗑 Yes, delete", publishedData(prefixPubConfirm, ch.Key, rec.MessageID)),
		btn("No", cbDeleteDecline),
	)}
	return h.reply(ctx, t, "Delete this post from "+escape(ch.Name)+"? This cannot be undone.", kb)
}

func (h *Handler) deletePublished(ctx context.Context, t *turn, data string) error {
	key, msgID, err := parsePublished(data, prefixPubConfirm)
	if err != nil {
		t.answer = "Unknown post"
		return nil
	}
	ch, rec, err := h.loadPublished(ctx, t, key, msgID)
	if rec == nil || err != nil {
		return err
	}
	reset(t.sess)
	if err := h.dispatcher.Delete(ctx, ch, rec); err != nil {
		return h.reply(ctx, t, "Could not delete the post: "+escape(err.Error()), mainMenuKeyboard())
	}
	return h.reply(ctx, t, "🗑 Post deleted from "+escape(ch.Name)+".", mainMenuKeyboard())
}
