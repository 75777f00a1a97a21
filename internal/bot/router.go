// Package bot routes inbound updates through the membership gate and the
// per-user conversation flows, and triggers the terminal actions (catalog
// writes, lookups, broadcast).
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Habibullo22/Kinouz/internal/broadcast"
	"github.com/Habibullo22/Kinouz/internal/config"
	"github.com/Habibullo22/Kinouz/internal/gate"
	"github.com/Habibullo22/Kinouz/internal/metrics"
	"github.com/Habibullo22/Kinouz/internal/session"
	"github.com/Habibullo22/Kinouz/internal/storage"
	"github.com/Habibullo22/Kinouz/internal/transport"
	"github.com/Habibullo22/Kinouz/pkg/logx"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// Codes longer than this are not treated as lookup candidates at all.
const maxLookupCodeLen = 25

type Router struct {
	tr         transport.Transport
	store      storage.Store
	sessions   *session.Store
	gate       *gate.Checker
	dispatcher *broadcast.Dispatcher
	dyn        func() *config.Dynamic
	log        logx.Logger
}

func NewRouter(
	tr transport.Transport,
	store storage.Store,
	sessions *session.Store,
	gate *gate.Checker,
	dispatcher *broadcast.Dispatcher,
	dyn func() *config.Dynamic,
	log logx.Logger,
) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		tr:         tr,
		store:      store,
		sessions:   sessions,
		gate:       gate,
		dispatcher: dispatcher,
		dyn:        dyn,
		log:        log.With(logx.String("comp", "router")),
	}
}

func (r *Router) HandleUpdate(ctx context.Context, up transport.Update) {
	metrics.UpdatesTotal.WithLabelValues(string(up.Kind)).Inc()
	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			r.handleMessage(ctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(ctx, up.Callback)
		}
	case transport.UpdateChatJoin:
		if up.ChatJoin != nil {
			r.handleChatJoin(ctx, up.ChatJoin)
		}
	}
}

// handleChatJoin notifies every admin that the bot was added to a chat.
// Gate-exempt: the actor is the chat admin who added the bot, not a bot user.
func (r *Router) handleChatJoin(ctx context.Context, j *transport.ChatJoin) {
	text := fmt.Sprintf("✅ Bot added to a chat!\n📌 Title: %s\n🆔 Chat ID: %d\n👤 Type: %s", j.Title, j.ChatID, j.Type)
	for _, adminID := range r.dyn().AdminIDs {
		if err := r.tr.SendText(ctx, adminID, text, nil); err != nil {
			r.log.Debug("admin notify failed", logx.Int64("admin", adminID), logx.Err(err))
		}
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	if cb.Data != checkJoinData {
		_ = r.tr.AnswerCallback(ctx, cb.ID, "")
		return
	}

	d := r.dyn()
	ok, missing := r.gate.Check(ctx, d.RequiredChannels, cb.FromID)
	if !ok {
		metrics.GateDeniedTotal.Inc()
		_ = r.tr.EditText(ctx, cb.ChatID, cb.MessageID, textJoinRetry, &transport.SendOptions{Markup: joinMarkup(missing)})
		_ = r.tr.AnswerCallback(ctx, cb.ID, "")
		return
	}

	if err := r.store.AddUser(ctx, cb.FromID); err != nil {
		r.log.Warn("user register failed", logx.Int64("user", cb.FromID), logx.Err(err))
	}
	_ = r.tr.EditText(ctx, cb.ChatID, cb.MessageID, textJoinOK, nil)
	if d.IsAdmin(cb.FromID) {
		_ = r.tr.SendText(ctx, cb.ChatID, textAdminWelcome, &transport.SendOptions{Markup: adminMenu()})
	} else {
		_ = r.tr.SendText(ctx, cb.ChatID, textWelcome, &transport.SendOptions{Markup: userMenu()})
	}
	_ = r.tr.AnswerCallback(ctx, cb.ID, "")
}

func (r *Router) handleMessage(ctx context.Context, m *transport.Message) {
	uid := m.FromID
	text := strings.TrimSpace(m.Text)

	// Narrow diagnostic command, exempt from the gate.
	if text == "/id" {
		_ = r.tr.SendText(ctx, m.ChatID, fmt.Sprintf("🆔 Chat ID: `%d`", m.ChatID), &transport.SendOptions{ParseMode: "Markdown"})
		return
	}

	// Serialize handling per user: two rapid messages from the same user must
	// not interleave around the session read-decide-write.
	release := r.sessions.Acquire(uid)
	defer release()

	d := r.dyn()
	ok, missing := r.gate.Check(ctx, d.RequiredChannels, uid)
	if !ok {
		metrics.GateDeniedTotal.Inc()
		_ = r.tr.SendText(ctx, m.ChatID, textJoinPrompt, &transport.SendOptions{Markup: joinMarkup(missing)})
		return
	}

	if err := r.store.AddUser(ctx, uid); err != nil {
		r.log.Warn("user register failed", logx.Int64("user", uid), logx.Err(err))
	}

	isAdmin := d.IsAdmin(uid)

	if text == "/start" {
		if isAdmin {
			_ = r.tr.SendText(ctx, m.ChatID, textAdminWelcome, &transport.SendOptions{Markup: adminMenu()})
		} else {
			_ = r.tr.SendText(ctx, m.ChatID, textWelcome, &transport.SendOptions{Markup: userMenu()})
		}
		return
	}

	// Menu triggers are matched before any flow logic and are never consumed
	// as flow input.
	if r.handleTrigger(ctx, m, d, isAdmin, text) {
		return
	}

	st, active := r.sessions.Active(uid)
	if active {
		if !isAdmin && st.Kind != session.Retrieve {
			// Admin-only flow held by a user who lost admin rights.
			r.sessions.End(uid)
			st, active = session.State{}, false
		}
	}
	if active {
		// Fixed priority order; the first matching kind consumes the message.
		switch st.Kind {
		case session.BroadcastWait:
			r.runBroadcast(ctx, m)
			return
		case session.Delete:
			if text == "" {
				return // still waiting for a text code
			}
			r.runDelete(ctx, m, text)
			return
		case session.Search:
			if text == "" {
				return
			}
			r.runSearch(ctx, m, text)
			return
		case session.AddMovie:
			r.advanceAddMovie(ctx, m, st)
			return
		case session.Retrieve:
			// handled by the lookup tail below
		}
	}

	if text == "" {
		return
	}

	// Bare text is only a lookup for admins or for users who entered Retrieve
	// mode via the menu button.
	inRetrieve := active && st.Kind == session.Retrieve
	if !isAdmin && !inRetrieve {
		_ = r.tr.SendText(ctx, m.ChatID, textGetMovieHint, nil)
		return
	}
	r.runRetrieve(ctx, m, d, text, inRetrieve)
}

// handleTrigger recognizes the literal menu button texts. It reports whether
// the message was consumed.
func (r *Router) handleTrigger(ctx context.Context, m *transport.Message, d *config.Dynamic, isAdmin bool, text string) bool {
	uid := m.FromID
	switch text {
	case btnGetMovie:
		r.sessions.Begin(uid, session.State{Kind: session.Retrieve})
		_ = r.tr.SendText(ctx, m.ChatID, textAskCode, nil)
		return true

	case btnMoviesChannel:
		if mk := channelLinkMarkup(d.MoviesChannel); mk != nil {
			_ = r.tr.SendText(ctx, m.ChatID, textChannelPrompt, &transport.SendOptions{Markup: mk})
		} else {
			_ = r.tr.SendText(ctx, m.ChatID, textChannelNotSet, nil)
		}
		return true

	case btnHelp:
		_ = r.tr.SendText(ctx, m.ChatID, textHelp, nil)
		return true

	case btnAddMovie:
		if !isAdmin {
			return true
		}
		r.sessions.Begin(uid, session.State{Kind: session.AddMovie, Step: session.StepCode})
		_ = r.tr.SendText(ctx, m.ChatID, textAddStep1, &transport.SendOptions{Markup: adminMenu()})
		return true

	case btnDeleteMovie:
		if !isAdmin {
			return true
		}
		r.sessions.Begin(uid, session.State{Kind: session.Delete})
		_ = r.tr.SendText(ctx, m.ChatID, textDeleteAskCode, &transport.SendOptions{Markup: adminMenu()})
		return true

	case btnFindMovie:
		if !isAdmin {
			return true
		}
		r.sessions.Begin(uid, session.State{Kind: session.Search})
		_ = r.tr.SendText(ctx, m.ChatID, textSearchAskCode, &transport.SendOptions{Markup: adminMenu()})
		return true

	case btnBroadcast:
		if !isAdmin {
			return true
		}
		r.sessions.Begin(uid, session.State{Kind: session.BroadcastWait})
		_ = r.tr.SendText(ctx, m.ChatID, textBroadcastAsk, &transport.SendOptions{Markup: adminMenu()})
		return true

	case btnStats:
		if !isAdmin {
			return true
		}
		r.sendStats(ctx, m)
		return true
	}
	return false
}

func (r *Router) sendStats(ctx context.Context, m *transport.Message) {
	users, err := r.store.UserCount(ctx)
	if err != nil {
		r.failStorage(ctx, m.ChatID, "user count", err)
		return
	}
	movies, err := r.store.MovieCount(ctx)
	if err != nil {
		r.failStorage(ctx, m.ChatID, "movie count", err)
		return
	}
	text := fmt.Sprintf("👥 Users: %d\n🎬 Movies: %d", users, movies)
	_ = r.tr.SendText(ctx, m.ChatID, text, &transport.SendOptions{Markup: adminMenu()})
}

func (r *Router) advanceAddMovie(ctx context.Context, m *transport.Message, st session.State) {
	uid := m.FromID
	switch st.Step {
	case session.StepCode:
		code := strings.TrimSpace(m.Text)
		if !codePattern.MatchString(code) {
			_ = r.tr.SendText(ctx, m.ChatID, textAddBadCode, &transport.SendOptions{Markup: adminMenu()})
			return
		}
		st.Code = code
		st.Step = session.StepTitle
		r.sessions.Update(uid, st)
		_ = r.tr.SendText(ctx, m.ChatID, textAddStep2, &transport.SendOptions{Markup: adminMenu()})

	case session.StepTitle:
		title := strings.TrimSpace(m.Text)
		if utf8.RuneCountInString(title) < 2 {
			_ = r.tr.SendText(ctx, m.ChatID, textAddShortTitle, &transport.SendOptions{Markup: adminMenu()})
			return
		}
		st.Title = title
		st.Step = session.StepVideo
		r.sessions.Update(uid, st)
		_ = r.tr.SendText(ctx, m.ChatID, textAddStep3, &transport.SendOptions{Markup: adminMenu()})

	case session.StepVideo:
		if !m.IsVideo() {
			_ = r.tr.SendText(ctx, m.ChatID, textAddNeedVideo, &transport.SendOptions{Markup: adminMenu()})
			return
		}
		movie := storage.Movie{Code: st.Code, Title: st.Title, FileID: m.VideoFileID, AddedBy: uid}
		if err := r.store.UpsertMovie(ctx, movie); err != nil {
			// The flow stays at step 3 so the admin can resend the video.
			r.failStorage(ctx, m.ChatID, "movie upsert", err)
			return
		}
		r.sessions.End(uid)
		metrics.FlowsCompletedTotal.WithLabelValues(session.AddMovie.String()).Inc()
		text := fmt.Sprintf("✅ Movie added!\n🔑 Code: %s\n🎬 Title: %s", st.Code, st.Title)
		_ = r.tr.SendText(ctx, m.ChatID, text, &transport.SendOptions{Markup: adminMenu()})
	}
}

func (r *Router) runDelete(ctx context.Context, m *transport.Message, code string) {
	r.sessions.End(m.FromID) // single-shot: this message ends the flow either way
	found, err := r.store.DeleteMovie(ctx, code)
	if err != nil {
		r.failStorage(ctx, m.ChatID, "movie delete", err)
		return
	}
	metrics.FlowsCompletedTotal.WithLabelValues(session.Delete.String()).Inc()
	text := textDeleteNotFound
	if found {
		text = textDeleted
	}
	_ = r.tr.SendText(ctx, m.ChatID, text, &transport.SendOptions{Markup: adminMenu()})
}

func (r *Router) runSearch(ctx context.Context, m *transport.Message, code string) {
	r.sessions.End(m.FromID)
	movie, found, err := r.store.GetMovie(ctx, code)
	if err != nil {
		r.failStorage(ctx, m.ChatID, "movie lookup", err)
		return
	}
	metrics.FlowsCompletedTotal.WithLabelValues(session.Search.String()).Inc()
	if !found {
		metrics.LookupsTotal.WithLabelValues("miss").Inc()
		_ = r.tr.SendText(ctx, m.ChatID, fmt.Sprintf("❌ Not found: %s", code), &transport.SendOptions{Markup: adminMenu()})
		return
	}
	metrics.LookupsTotal.WithLabelValues("hit").Inc()
	_ = r.tr.SendVideo(ctx, m.ChatID, movie.FileID, movieCaption(movie), nil)
}

func (r *Router) runRetrieve(ctx context.Context, m *transport.Message, d *config.Dynamic, code string, inRetrieve bool) {
	uid := m.FromID

	// Oversized input is not a candidate code: end the flow without touching
	// storage. A new attempt requires re-entering Retrieve mode.
	if utf8.RuneCountInString(code) > maxLookupCodeLen {
		r.sessions.End(uid)
		return
	}

	movie, found, err := r.store.GetMovie(ctx, code)
	r.sessions.End(uid) // one attempt per menu entry, found or not
	if err != nil {
		r.failStorage(ctx, m.ChatID, "movie lookup", err)
		return
	}
	if inRetrieve {
		metrics.FlowsCompletedTotal.WithLabelValues(session.Retrieve.String()).Inc()
	}

	if found {
		metrics.LookupsTotal.WithLabelValues("hit").Inc()
		_ = r.tr.SendVideo(ctx, m.ChatID, movie.FileID, movieCaption(movie), nil)
		return
	}

	metrics.LookupsTotal.WithLabelValues("miss").Inc()
	notFound := fmt.Sprintf("❌ No movie found for this code: %s", code)
	if mk := channelLinkMarkup(d.MoviesChannel); mk != nil {
		_ = r.tr.SendText(ctx, m.ChatID, notFound+"\n\n"+textNotFoundChannel, &transport.SendOptions{Markup: mk})
		return
	}
	_ = r.tr.SendText(ctx, m.ChatID, notFound, nil)
}

func (r *Router) runBroadcast(ctx context.Context, m *transport.Message) {
	r.sessions.End(m.FromID)
	_ = r.tr.SendText(ctx, m.ChatID, textBroadcastRunning, nil)

	ok, fail, err := r.dispatcher.Dispatch(ctx, m.ChatID, m.ID)
	if err != nil {
		r.failStorage(ctx, m.ChatID, "broadcast snapshot", err)
		return
	}
	metrics.BroadcastDeliveriesTotal.WithLabelValues("ok").Add(float64(ok))
	metrics.BroadcastDeliveriesTotal.WithLabelValues("fail").Add(float64(fail))
	metrics.FlowsCompletedTotal.WithLabelValues(session.BroadcastWait.String()).Inc()

	summary := fmt.Sprintf("✅ Sent: %d\n❌ Failed: %d", ok, fail)
	_ = r.tr.SendText(ctx, m.ChatID, summary, &transport.SendOptions{Markup: adminMenu()})
}

// failStorage reports a generic failure to the user and logs the cause.
// Internal detail never reaches the chat.
func (r *Router) failStorage(ctx context.Context, chatID int64, op string, err error) {
	r.log.Error("storage operation failed", logx.String("op", op), logx.Err(err))
	_ = r.tr.SendText(ctx, chatID, textStorageError, nil)
}

func movieCaption(m storage.Movie) string {
	return fmt.Sprintf("🎬 %s\n🔑 Code: %s", m.Title, m.Code)
}
