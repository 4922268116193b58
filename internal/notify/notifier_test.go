package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/repository"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeReports struct {
	mu        sync.Mutex
	report    *entity.Report
	recipient *entity.Recipient
	delivered []string
	getErr    error
}

func (f *fakeReports) Get(_ context.Context, id uuid.UUID) (*entity.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.report, nil
}

func (f *fakeReports) GetRecipient(context.Context, uuid.UUID) (*entity.Recipient, error) {
	return f.recipient, nil
}

func (f *fakeReports) MarkDelivered(_ context.Context, _ uuid.UUID, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, channel)
	return nil
}

type fakeEmail struct {
	err     error
	to      string
	subject string
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, _ string) error {
	f.to, f.subject = to, subject
	return f.err
}

type stalledEmail struct{}

func (stalledEmail) SendEmail(ctx context.Context, _, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeWhatsApp struct {
	err error
	to  string
	msg string
}

func (f *fakeWhatsApp) SendWhatsApp(_ context.Context, to, message string) error {
	f.to, f.msg = to, message
	return f.err
}

func notifyConfig() config.NotifyConfig {
	return config.NotifyConfig{AppURL: "https://app.example.com", DefaultPhoneRegion: "IN"}
}

func optedInRecipient() *entity.Recipient {
	email := "Owner@Example.com"
	phone := "+91 81234 56789"
	return &entity.Recipient{
		BrandName:       "Acme",
		Email:           &email,
		EmailOptedIn:    true,
		WhatsAppNumber:  &phone,
		WhatsAppOptedIn: true,
	}
}

func outcome(t *testing.T, result dto.NotifyResult, channel string) dto.ChannelOutcome {
	t.Helper()
	for _, o := range result.Channels {
		if o.Channel == channel {
			return o
		}
	}
	t.Fatalf("no outcome for %s", channel)
	return dto.ChannelOutcome{}
}

func TestNotify_EmailFailsWhatsAppSucceeds(t *testing.T) {
	reports := &fakeReports{
		report:    reportWith(t, entity.Insights{BrandHealth: entity.BrandHealth{OverallScore: 70}}),
		recipient: optedInRecipient(),
	}
	email := &fakeEmail{err: errors.New("resend error (422): invalid from")}
	whatsapp := &fakeWhatsApp{}

	result, err := New(reports, email, whatsapp, notifyConfig()).Notify(context.Background(), reports.report.ID)
	require.NoError(t, err)

	e := outcome(t, result, repository.ChannelEmail)
	assert.True(t, e.Attempted)
	assert.False(t, e.Delivered)
	assert.Contains(t, e.Reason, "invalid from")

	w := outcome(t, result, repository.ChannelWhatsApp)
	assert.True(t, w.Delivered)

	assert.Equal(t, []string{repository.ChannelWhatsApp}, reports.delivered)
	assert.Equal(t, "owner@example.com", email.to)
	assert.Equal(t, "+918123456789", whatsapp.to)
	assert.Contains(t, whatsapp.msg, "*70/100*")
}

func TestNotify_SkipsChannelsWithoutOptInOrContact(t *testing.T) {
	recipient := optedInRecipient()
	recipient.EmailOptedIn = false
	recipient.WhatsAppNumber = nil
	reports := &fakeReports{report: reportWith(t, entity.Insights{}), recipient: recipient}
	email, whatsapp := &fakeEmail{}, &fakeWhatsApp{}

	result, err := New(reports, email, whatsapp, notifyConfig()).Notify(context.Background(), reports.report.ID)
	require.NoError(t, err)

	assert.False(t, outcome(t, result, repository.ChannelEmail).Attempted)
	assert.Equal(t, "no contact on file", outcome(t, result, repository.ChannelWhatsApp).Reason)
	assert.Empty(t, email.to)
	assert.Empty(t, whatsapp.to)
	assert.Empty(t, reports.delivered)
}

func TestNotify_UnconfiguredChannel(t *testing.T) {
	reports := &fakeReports{report: reportWith(t, entity.Insights{}), recipient: optedInRecipient()}

	var resend *ResendClient
	result, err := New(reports, resend, &fakeWhatsApp{}, notifyConfig()).Notify(context.Background(), reports.report.ID)
	require.NoError(t, err)

	e := outcome(t, result, repository.ChannelEmail)
	assert.Equal(t, errChannelNotConfigured.Error(), e.Reason)
	assert.Equal(t, []string{repository.ChannelWhatsApp}, reports.delivered)
}

func TestNotify_UsesConfiguredTimeout(t *testing.T) {
	reports := &fakeReports{report: reportWith(t, entity.Insights{}), recipient: optedInRecipient()}
	cfg := notifyConfig()
	cfg.Timeout = 20 * time.Millisecond

	n := New(reports, stalledEmail{}, &fakeWhatsApp{}, cfg)
	assert.Equal(t, 20*time.Millisecond, n.timeout)

	result, err := n.Notify(context.Background(), reports.report.ID)
	require.NoError(t, err)

	e := outcome(t, result, repository.ChannelEmail)
	assert.True(t, e.Attempted)
	assert.False(t, e.Delivered)
	assert.Equal(t, context.DeadlineExceeded.Error(), e.Reason)
	assert.Equal(t, []string{repository.ChannelWhatsApp}, reports.delivered)
}

func TestNew_ZeroTimeoutFallsBackToDefault(t *testing.T) {
	n := New(&fakeReports{}, nil, nil, notifyConfig())
	assert.Equal(t, defaultSendTimeout, n.timeout)
}

func TestNotify_ReportLookupFails(t *testing.T) {
	reports := &fakeReports{getErr: repository.ErrReportNotFound}
	_, err := New(reports, &fakeEmail{}, &fakeWhatsApp{}, notifyConfig()).Notify(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrReportNotFound)
}

func TestGupshupClient_PostsForm(t *testing.T) {
	var (
		gotKey  string
		gotForm url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/msg", r.URL.Path)
		gotKey = r.Header.Get("apikey")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"submitted"}`))
	}))
	defer srv.Close()

	client := NewGupshupClient(config.NotifyConfig{
		GupshupAPIKey:       "gs-key",
		GupshupAppName:      "brandintel",
		GupshupSourceNumber: "917834811114",
		GupshupBaseURL:      srv.URL,
	}, srv.Client())
	require.NoError(t, client.SendWhatsApp(context.Background(), "+919876543210", "hello"))

	assert.Equal(t, "gs-key", gotKey)
	assert.Equal(t, "whatsapp", gotForm.Get("channel"))
	assert.Equal(t, "919876543210", gotForm.Get("destination"))
	assert.Equal(t, "brandintel", gotForm.Get("src.name"))
	assert.Equal(t, "hello", gotForm.Get("message"))
}

func TestResendClient_ReportsPermanentError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	client := NewResendClient(config.NotifyConfig{ResendAPIKey: "re-key", ResendBaseURL: srv.URL, ResendFromEmail: "a@b.co"}, srv.Client())
	err := client.SendEmail(context.Background(), "owner@example.com", "s", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
	assert.Equal(t, 1, calls)
}

func TestNewClientsWithoutKeys(t *testing.T) {
	assert.Nil(t, NewResendClient(config.NotifyConfig{}, nil))
	assert.Nil(t, NewGupshupClient(config.NotifyConfig{}, nil))
}
