package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/classify"
)

type fakeCompletion struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeGenerated, ParseMode("generated"))
	assert.Equal(t, ModeTemplated, ParseMode("templated"))
	assert.Equal(t, ModeTemplated, ParseMode(""))
	assert.Equal(t, ModeTemplated, ParseMode("bogus"))
}

func TestComposeTemplatedIsDeterministic(t *testing.T) {
	fake := &fakeCompletion{answer: "should never be used"}
	c := NewComposer(fake, ModeTemplated)

	first, err := c.Compose(context.Background(), classify.LabelInterested)
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), classify.LabelInterested)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Interested", first.Subject)
	assert.Contains(t, first.HTMLBody, `<div style=`)
	assert.Contains(t, first.HTMLBody, "Thank you for expressing interest")
	// 模板模式不触发任何外部调用
	assert.Equal(t, 0, fake.calls)
}

func TestComposeTemplatedCoversAllLabels(t *testing.T) {
	c := NewComposer(nil, ModeTemplated)
	for _, label := range []classify.Label{
		classify.LabelInterested,
		classify.LabelNotInterested,
		classify.LabelMoreInformation,
	} {
		draft, err := c.Compose(context.Background(), label)
		require.NoError(t, err)
		assert.Equal(t, string(label), draft.Subject)
		assert.NotEmpty(t, draft.HTMLBody)
	}
}

func TestComposeUnknownLabel(t *testing.T) {
	c := NewComposer(nil, ModeTemplated)
	_, err := c.Compose(context.Background(), classify.Label("Spam"))
	assert.ErrorIs(t, err, ErrComposeFailed)
}

func TestComposeGeneratedUsesModel(t *testing.T) {
	fake := &fakeCompletion{answer: "Custom generated reply text."}
	c := NewComposer(fake, ModeGenerated)

	draft, err := c.Compose(context.Background(), classify.LabelNotInterested)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Contains(t, draft.HTMLBody, "Custom generated reply text.")
	assert.Equal(t, "Not Interested", draft.Subject)
}

func TestComposeGeneratedEmptyAnswerFallsBack(t *testing.T) {
	fake := &fakeCompletion{answer: ""}
	c := NewComposer(fake, ModeGenerated)

	draft, err := c.Compose(context.Background(), classify.LabelInterested)
	require.NoError(t, err)
	assert.Contains(t, draft.HTMLBody, "Thank you for expressing interest")
}

func TestComposeGeneratedModelError(t *testing.T) {
	fake := &fakeCompletion{err: errors.New("rate limited")}
	c := NewComposer(fake, ModeGenerated)

	_, err := c.Compose(context.Background(), classify.LabelInterested)
	assert.ErrorIs(t, err, ErrComposeFailed)
}
