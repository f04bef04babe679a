package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rahul/autops/internal/agent"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// SlackGateway serves the Slack webhook endpoints and posts replies. It
// acknowledges every webhook immediately and pushes the real work onto the
// dispatcher, so Slack's delivery timeout never races the LLM.
type SlackGateway struct {
	api           *slack.Client
	signingSecret string
	server        *http.Server
	botUserID     string

	Dispatcher    *agent.Dispatcher
	OnQuery       func(ctx context.Context, text, channel string)
	OnInteraction func(ctx context.Context, actionID, value, user, channel string)
}

func NewSlackGateway(token, signingSecret, listenAddr string) (*SlackGateway, error) {
	api := slack.New(token)

	auth, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth failed: %w", err)
	}
	log.Printf("Authorized on Slack as %s", auth.User)

	g := &SlackGateway{
		api:           api,
		signingSecret: signingSecret,
		botUserID:     auth.UserID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/slack/events", g.handleEvents)
	mux.HandleFunc("/api/slack/slash", g.handleSlash)
	mux.HandleFunc("/api/slack/interactive", g.handleInteractive)

	g.server = &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return g, nil
}

func (g *SlackGateway) Start() error {
	log.Printf("Slack gateway listening on %s", g.server.Addr)
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *SlackGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}

// Send posts plain text to a channel.
func (g *SlackGateway) Send(channel, text string) error {
	_, _, err := g.api.PostMessage(channel, slack.MsgOptionText(text, false))
	return err
}

// SendInteractive posts an approval prompt as a Block Kit message with
// Approve/Deny buttons.
func (g *SlackGateway) SendInteractive(channel string, msg agent.InteractiveMessage) error {
	analysis := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Incident Analysis:*\n%s", msg.Analysis), false, false),
		nil, nil)
	suggestion := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("I suggest the following action: `%s`", msg.Action), false, false),
		nil, nil)

	approve := slack.NewButtonBlockElement(msg.ApproveID, msg.ApproveValue,
		slack.NewTextBlockObject(slack.PlainTextType, "Approve", true, false))
	approve.Style = slack.StylePrimary
	deny := slack.NewButtonBlockElement(msg.DenyID, msg.DenyValue,
		slack.NewTextBlockObject(slack.PlainTextType, "Deny", true, false))
	deny.Style = slack.StyleDanger

	actions := slack.NewActionBlock("remediation_approval", approve, deny)

	_, _, err := g.api.PostMessage(channel, slack.MsgOptionBlocks(analysis, suggestion, actions))
	return err
}

// verifiedBody reads the request body and checks the Slack signature
// against it. A nil return with no error means the request is a forgery.
func (g *SlackGateway) verifiedBody(w http.ResponseWriter, r *http.Request) []byte {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, g.signingSecret)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	if _, err := verifier.Write(body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	if err := verifier.Ensure(); err != nil {
		log.Printf("invalid Slack signature from %s", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return nil
	}
	return body
}

func (g *SlackGateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	body := g.verifiedBody(w, r)
	if body == nil {
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, challenge.Challenge)

	case slackevents.CallbackEvent:
		if mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			text := g.stripMention(mention.Text)
			g.enqueueQuery(text, mention.Channel)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)

	default:
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"event type not supported"}`)
	}
}

func (g *SlackGateway) handleSlash(w http.ResponseWriter, r *http.Request) {
	body := g.verifiedBody(w, r)
	if body == nil {
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(values.Get("text"))
	channel := values.Get("channel_id")

	w.Header().Set("Content-Type", "application/json")

	if text == "" {
		json.NewEncoder(w).Encode(map[string]string{
			"response_type": "ephemeral",
			"text":          "Please provide a query. Example: `/autops What's the status of the payment service?`",
		})
		return
	}

	g.enqueueQuery(text, channel)

	json.NewEncoder(w).Encode(map[string]string{
		"response_type": "in_channel",
		"text":          fmt.Sprintf("Processing your request: `%s`\nI'll respond shortly...", text),
	})
}

func (g *SlackGateway) handleInteractive(w http.ResponseWriter, r *http.Request) {
	body := g.verifiedBody(w, r)
	if body == nil {
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(values.Get("payload")), &callback); err != nil {
		log.Printf("failed to parse interaction payload: %v", err)
		// Still 200: Slack retries on anything else and the payload
		// will not get better.
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(callback.ActionCallback.BlockActions) > 0 && g.OnInteraction != nil {
		action := callback.ActionCallback.BlockActions[0]
		actionID := action.ActionID
		value := action.Value
		user := callback.User.ID
		channel := callback.Channel.ID

		log.Printf("interactive payload: action_id=%q user=%s", actionID, user)

		g.Dispatcher.Enqueue(func(ctx context.Context) {
			g.OnInteraction(ctx, actionID, value, user, channel)
		})
	}

	w.WriteHeader(http.StatusOK)
}

func (g *SlackGateway) enqueueQuery(text, channel string) {
	if g.OnQuery == nil || text == "" {
		return
	}
	ok := g.Dispatcher.Enqueue(func(ctx context.Context) {
		g.OnQuery(ctx, text, channel)
	})
	if !ok {
		if err := g.Send(channel, "I'm handling too many requests right now, please try again in a moment."); err != nil {
			log.Printf("failed to send backpressure notice: %v", err)
		}
	}
}

// stripMention removes the leading bot mention token from an app_mention
// event's text.
func (g *SlackGateway) stripMention(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "<@") {
		if i := strings.Index(text, ">"); i != -1 {
			text = strings.TrimSpace(text[i+1:])
		}
	}
	return text
}
