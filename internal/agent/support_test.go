package agent

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel scripts the language model: response i answers call i. An entry
// in errs takes precedence over the response at the same index.
type fakeModel struct {
	mu        sync.Mutex
	calls     int
	responses []string
	errs      []error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}

	content := ""
	if i < len(m.responses) {
		content = m.responses[i]
	} else if len(m.responses) > 0 {
		content = m.responses[len(m.responses)-1]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type sentMessage struct {
	Channel string
	Text    string
}

type sentInteractive struct {
	Channel string
	Msg     InteractiveMessage
}

// recordingMessenger captures outbound messages for assertions.
type recordingMessenger struct {
	mu          sync.Mutex
	sent        []sentMessage
	interactive []sentInteractive
	failSend    error
}

func (m *recordingMessenger) Send(channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend != nil {
		return m.failSend
	}
	m.sent = append(m.sent, sentMessage{Channel: channel, Text: text})
	return nil
}

func (m *recordingMessenger) SendInteractive(channel string, msg InteractiveMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactive = append(m.interactive, sentInteractive{Channel: channel, Msg: msg})
	return nil
}

func (m *recordingMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *recordingMessenger) interactives() []sentInteractive {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentInteractive(nil), m.interactive...)
}
