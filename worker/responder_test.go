package worker

import (
	"errors"
	"testing"
	"time"

	"replyloop/models"
	"replyloop/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAI returns canned classification and generation results
type fakeAI struct {
	intents     []utils.DetectedIntent
	classifyErr error
	reply       *utils.GeneratedReply
	generateErr error
}

func (f *fakeAI) Classify(text, subject string) ([]utils.DetectedIntent, error) {
	return f.intents, f.classifyErr
}

func (f *fakeAI) Generate(text, subject string, intents []utils.DetectedIntent, history []models.ThreadMessage, prospect *models.Prospect) (*utils.GeneratedReply, error) {
	return f.reply, f.generateErr
}

func TestShouldAutoRespondIgnoresConfidence(t *testing.T) {
	db := openTestDB(t)
	intent := &models.IntentConfig{
		Name:        "interested",
		Keywords:    []string{"pricing"},
		AutoRespond: true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(intent).Error)

	ar := NewAutoResponder(db, testLogger(), &fakeAI{}, nil, nil)

	// Far below any plausible threshold; the decision still fires
	got := ar.ShouldAutoRespond([]utils.DetectedIntent{
		{IntentID: intent.ID, Name: intent.Name, Confidence: 0.01},
	})
	assert.True(t, got)
}

func TestShouldAutoRespondFalseWithoutConfiguredIntent(t *testing.T) {
	db := openTestDB(t)
	intent := &models.IntentConfig{
		Name:        "not_interested",
		Keywords:    []string{"remove me"},
		AutoRespond: false,
		IsActive:    true,
	}
	require.NoError(t, db.Create(intent).Error)

	ar := NewAutoResponder(db, testLogger(), &fakeAI{}, nil, nil)

	assert.False(t, ar.ShouldAutoRespond([]utils.DetectedIntent{
		{IntentID: intent.ID, Confidence: 0.99},
	}))
	assert.False(t, ar.ShouldAutoRespond(nil))
}

func TestHandleInboundSendsGeneratedReply(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := createProvider(t, db, now)
	campaign := createCampaign(t, db, nil, nil)
	prospect := createProspect(t, db, campaign.ID, "jane@acme.com")

	intent := &models.IntentConfig{
		Name:        "interested",
		Keywords:    []string{"pricing"},
		AutoRespond: true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(intent).Error)

	threads := utils.NewThreadStore(db, testLogger())
	thread, err := threads.GetOrCreate(prospect.ID)
	require.NoError(t, err)

	transport := &stubTransport{}
	gateway := utils.NewSendGatewayWithTransport(db, testLogger(), transport)
	gateway.Now = func() time.Time { return now }

	templateID := uint(7)
	ai := &fakeAI{
		intents: []utils.DetectedIntent{{IntentID: intent.ID, Name: "interested", Confidence: 0.8}},
		reply: &utils.GeneratedReply{
			Subject:      "Re: Quick question",
			Content:      "Hi {{first_name}}, here is our pricing.",
			TemplateUsed: &templateID,
		},
	}
	ar := NewAutoResponder(db, testLogger(), ai, gateway, threads)

	require.NoError(t, ar.HandleInbound(prospect, thread, "Quick question", "what is your pricing?"))

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "jane@acme.com", transport.sent[0].To)
	assert.Equal(t, "Hi Jane, here is our pricing.", transport.sent[0].Content)

	got, err := threads.Get(thread.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, models.DirectionSent, msg.Direction)
	assert.True(t, msg.SentByUs)
	assert.True(t, msg.AIGenerated)
	require.NotNil(t, msg.EmailProviderID)
	assert.Equal(t, provider.ID, *msg.EmailProviderID)
	require.NotNil(t, msg.TemplateID)
	assert.Equal(t, templateID, *msg.TemplateID)
}

func TestHandleInboundSkipsWhenNoAutoRespondIntent(t *testing.T) {
	db := openTestDB(t)
	campaign := createCampaign(t, db, nil, nil)
	prospect := createProspect(t, db, campaign.ID, "jane@acme.com")

	threads := utils.NewThreadStore(db, testLogger())
	thread, err := threads.GetOrCreate(prospect.ID)
	require.NoError(t, err)

	transport := &stubTransport{}
	gateway := utils.NewSendGatewayWithTransport(db, testLogger(), transport)

	ar := NewAutoResponder(db, testLogger(), &fakeAI{}, gateway, threads)

	require.NoError(t, ar.HandleInbound(prospect, thread, "hi", "just saying hi"))
	assert.Empty(t, transport.sent)
}

func TestHandleInboundRateLimitedSkipsQuietly(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := createProvider(t, db, now)
	require.NoError(t, db.Model(provider).Update("sent_this_hour", provider.HourlySendLimit).Error)

	campaign := createCampaign(t, db, nil, nil)
	prospect := createProspect(t, db, campaign.ID, "jane@acme.com")

	intent := &models.IntentConfig{
		Name:        "interested",
		Keywords:    []string{"pricing"},
		AutoRespond: true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(intent).Error)

	threads := utils.NewThreadStore(db, testLogger())
	thread, err := threads.GetOrCreate(prospect.ID)
	require.NoError(t, err)

	transport := &stubTransport{}
	gateway := utils.NewSendGatewayWithTransport(db, testLogger(), transport)
	gateway.Now = func() time.Time { return now }

	ai := &fakeAI{
		intents: []utils.DetectedIntent{{IntentID: intent.ID, Name: "interested", Confidence: 0.8}},
		reply:   &utils.GeneratedReply{Subject: "Re: Quick question", Content: "pricing attached"},
	}
	ar := NewAutoResponder(db, testLogger(), ai, gateway, threads)

	// A provider at its cap is "not yet", not a failure
	require.NoError(t, ar.HandleInbound(prospect, thread, "Quick question", "pricing?"))
	assert.Empty(t, transport.sent)

	got, err := threads.Get(thread.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}

func TestHandleInboundGenerationFailureIsNotFatal(t *testing.T) {
	db := openTestDB(t)
	campaign := createCampaign(t, db, nil, nil)
	prospect := createProspect(t, db, campaign.ID, "jane@acme.com")

	intent := &models.IntentConfig{
		Name:        "interested",
		Keywords:    []string{"pricing"},
		AutoRespond: true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(intent).Error)

	threads := utils.NewThreadStore(db, testLogger())
	thread, err := threads.GetOrCreate(prospect.ID)
	require.NoError(t, err)

	transport := &stubTransport{}
	gateway := utils.NewSendGatewayWithTransport(db, testLogger(), transport)

	ai := &fakeAI{
		intents:     []utils.DetectedIntent{{IntentID: intent.ID, Confidence: 0.9}},
		generateErr: errors.New("model unavailable"),
	}
	ar := NewAutoResponder(db, testLogger(), ai, gateway, threads)

	// Generation trouble leaves the message for a human, without an error
	require.NoError(t, ar.HandleInbound(prospect, thread, "Quick question", "pricing?"))
	assert.Empty(t, transport.sent)

	got, err := threads.Get(thread.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}
