package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v7/linebot"

	"rental-bot/config"
	"rental-bot/models"
	"rental-bot/scraper"
	"rental-bot/services"
	"rental-bot/storage"
	"rental-bot/utils"
)

// Scraper fetches and extracts the listings behind a search URL.
type Scraper interface {
	Scrape(ctx context.Context, searchURL string) (*scraper.Result, error)
}

// SiteMatcher reports whether a URL belongs to a supported site.
type SiteMatcher interface {
	Lookup(rawURL string) (scraper.Source, bool)
}

// Deps are the collaborators a Handler needs. Audit is optional.
type Deps struct {
	Searches  storage.SearchStore
	Listings  storage.ListingStore
	Scraper   Scraper
	Sites     SiteMatcher
	Messenger Messenger
	Audit     storage.ListingWriter
}

// Event is one inbound text message.
type Event struct {
	ConversationID string
	ReplyToken     string
	Text           string
	ReceivedAt     time.Time
}

// Outcome summarises one search run.
type Outcome struct {
	Found    int
	New      int
	Notified int
	Saved    int
	Degraded bool
}

// Handler executes chat commands. Each call is independent; concurrent calls
// for different conversations share no state beyond the stores.
type Handler struct {
	deps       Deps
	formatter  FlexFormatter
	perMessage int
	maxTotal   int
	logger     *utils.Logger
}

func NewHandler(cfg *config.Config, deps Deps, logger *utils.Logger) *Handler {
	return &Handler{
		deps:       deps,
		perMessage: cfg.MaxPerMessage,
		maxTotal:   cfg.MaxNotifications,
		logger:     logger,
	}
}

// HandleText parses and runs the command in ev.
func (h *Handler) HandleText(ctx context.Context, ev Event) error {
	cmd := ParseCommand(ev.Text)
	if cmd.Kind == CommandNone {
		return nil
	}

	log := h.logger.With(requestID())
	log.Info("[bot] %s from %s", cmd.Kind, ev.ConversationID)

	to := Target{ConversationID: ev.ConversationID, ReplyToken: ev.ReplyToken, ReceivedAt: ev.ReceivedAt}
	switch cmd.Kind {
	case CommandHelp:
		return h.sendText(ctx, to, msgHelp)
	case CommandShowURL:
		return h.showURL(ctx, to)
	case CommandUpdateURL:
		return h.updateURL(ctx, to, cmd.URL, log)
	case CommandSearch:
		return h.search(ctx, to, log)
	}
	return nil
}

// RunScheduled runs a push-only search for s. It stays silent unless there
// are new listings.
func (h *Handler) RunScheduled(ctx context.Context, s models.ConfiguredSearch) (Outcome, error) {
	log := h.logger.With(fmt.Sprintf("%s search=%d", requestID(), s.ID))
	return h.run(ctx, s, Target{ConversationID: s.ConversationID}, false, log)
}

func (h *Handler) showURL(ctx context.Context, to Target) error {
	s, err := h.deps.Searches.GetSearch(ctx, to.ConversationID)
	if errors.Is(err, storage.ErrSearchNotFound) {
		return h.sendText(ctx, to, msgNoURL)
	}
	if err != nil {
		_ = h.sendText(ctx, to, msgStoreFailure)
		return fmt.Errorf("bot: get search: %w", err)
	}
	return h.sendText(ctx, to, msgCurrentURL(s.URL))
}

func (h *Handler) updateURL(ctx context.Context, to Target, url string, log *utils.Logger) error {
	if url == "" {
		return h.sendText(ctx, to, msgInvalidURL)
	}
	if _, ok := h.deps.Sites.Lookup(url); !ok {
		return h.sendText(ctx, to, msgUnsupportedSite)
	}

	s, err := h.deps.Searches.UpsertSearch(ctx, to.ConversationID, url)
	if err != nil {
		_ = h.sendText(ctx, to, msgUpdateFailed)
		return fmt.Errorf("bot: upsert search: %w", err)
	}
	log.Info("[bot] Search %d now points at %s", s.ID, s.URL)
	return h.sendText(ctx, to, msgURLUpdated(s.URL))
}

func (h *Handler) search(ctx context.Context, to Target, log *utils.Logger) error {
	s, err := h.deps.Searches.GetSearch(ctx, to.ConversationID)
	if errors.Is(err, storage.ErrSearchNotFound) {
		return h.sendText(ctx, to, msgNoURL)
	}
	if err != nil {
		_ = h.sendText(ctx, to, msgStoreFailure)
		return fmt.Errorf("bot: get search: %w", err)
	}

	_, err = h.run(ctx, *s, to, true, log)
	return err
}

// run is the search pipeline: scrape, drop known listings, notify, then
// persist what was shown. Interactive runs always answer; scheduled runs
// only speak when there is something new.
func (h *Handler) run(ctx context.Context, s models.ConfiguredSearch, to Target, interactive bool, log *utils.Logger) (Outcome, error) {
	var out Outcome

	res, err := h.deps.Scraper.Scrape(ctx, s.URL)
	if err != nil {
		log.Error("[bot] Search %d failed: %v", s.ID, err)
		if interactive {
			_ = h.sendText(ctx, to, msgScrapeFailure(err))
		}
		return out, fmt.Errorf("bot: scrape: %w", err)
	}
	out.Found = len(res.Listings)

	if res.Degraded {
		out.Degraded = true
		if !interactive {
			log.Warn("[bot] Search %d degraded: %s", s.ID, res.Listings[0].Address)
			return out, nil
		}
		batches := services.Paginate(res.Listings, h.perMessage, h.maxTotal)
		return out, h.send(ctx, to, h.formatter.Messages(batches, s.URL)...)
	}

	if len(res.Listings) == 0 {
		log.Info("[bot] Search %d returned no listings", s.ID)
		if interactive {
			return out, h.sendText(ctx, to, msgNothingFound)
		}
		return out, nil
	}

	known, err := h.deps.Listings.KnownURLs(ctx, s.ID, services.DetailURLs(res.Listings))
	if err != nil {
		if interactive {
			_ = h.sendText(ctx, to, msgStoreFailure)
		}
		return out, fmt.Errorf("bot: known urls: %w", err)
	}

	fresh := services.FilterNew(res.Listings, known)
	out.New = len(fresh)
	if len(fresh) == 0 {
		log.Info("[bot] Search %d: %d listings, none new", s.ID, out.Found)
		if interactive {
			return out, h.sendText(ctx, to, msgNothingNew)
		}
		return out, nil
	}

	batches := services.Paginate(fresh, h.perMessage, h.maxTotal)
	notified := fresh[:batches[len(batches)-1].End]
	if err := h.send(ctx, to, h.formatter.Messages(batches, s.URL)...); err != nil {
		return out, fmt.Errorf("bot: notify: %w", err)
	}
	out.Notified = len(notified)

	// Only listings the user actually saw are marked as known, so anything
	// past the notification cap is reported on the next run.
	saved, err := h.deps.Listings.SaveListings(ctx, s.ID, notified)
	if err != nil {
		log.Error("[bot] Persisting %d listings for search %d failed: %v", len(notified), s.ID, err)
	}
	out.Saved = saved

	if h.deps.Audit != nil {
		if err := h.deps.Audit.Write(s.ID, notified); err != nil {
			log.Warn("[bot] Audit write failed: %v", err)
		}
	}

	log.Info("[bot] Search %d: found %d, new %d, notified %d, saved %d",
		s.ID, out.Found, out.New, out.Notified, out.Saved)
	return out, nil
}

func (h *Handler) sendText(ctx context.Context, to Target, text string) error {
	return h.send(ctx, to, linebot.NewTextMessage(text))
}

func (h *Handler) send(ctx context.Context, to Target, msgs ...linebot.SendingMessage) error {
	if err := h.deps.Messenger.Send(ctx, to, msgs...); err != nil {
		h.logger.Error("[bot] Sending to %s failed: %v", to.ConversationID, err)
		return err
	}
	return nil
}

func requestID() string {
	return "req=" + uuid.NewString()[:8]
}
