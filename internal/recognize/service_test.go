package recognize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gutlog/internal/resilience"
)

// MockRecognizer implements Recognizer for testing.
type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func fastOptions() Options {
	return Options{Attempts: 3, Backoff: time.Millisecond, AttemptTimeout: time.Second}
}

var testImage = Image{MediaType: "image/jpeg", Data: []byte{1, 2, 3}}

func TestService_Analyze_Success(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, testImage).
		Return(`{"food_name":"tteokbokki","total_mass_g":380,"comment":"spicy"}`, nil).Once()

	res, err := NewService(rec, fastOptions()).Analyze(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "tteokbokki", res.FoodName)
	assert.InDelta(t, 380.0, res.TotalMassG, 1e-9)
	rec.AssertExpectations(t)
}

func TestService_Analyze_RetriesMalformedOutput(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, testImage).Return("I'm not sure what this is.", nil).Once()
	rec.On("Recognize", mock.Anything, testImage).Return(`{"food_name":"ramen","total_mass_g":"0 g"}`, nil).Once()
	rec.On("Recognize", mock.Anything, testImage).Return(`{"food_name":"ramen","total_mass_g":"550 g"}`, nil).Once()

	res, err := NewService(rec, fastOptions()).Analyze(context.Background(), testImage)
	require.NoError(t, err)
	assert.InDelta(t, 550.0, res.TotalMassG, 1e-9)
	rec.AssertNumberOfCalls(t, "Recognize", 3)
}

func TestService_Analyze_RetriesTransient(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, testImage).
		Return("", resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	rec.On("Recognize", mock.Anything, testImage).
		Return(`{"food_name":"salad","total_mass_g":200}`, nil).Once()

	res, err := NewService(rec, fastOptions()).Analyze(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "salad", res.FoodName)
	rec.AssertNumberOfCalls(t, "Recognize", 2)
}

func TestService_Analyze_Exhausted(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, testImage).Return(`{"total_mass_g":200}`, nil)

	_, err := NewService(rec, fastOptions()).Analyze(context.Background(), testImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecognitionFailed)
	assert.ErrorIs(t, err, ErrMissingName)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	rec.AssertNumberOfCalls(t, "Recognize", 3)
}

func TestService_Analyze_PermanentErrorNoRetry(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, testImage).Return("", errors.New("401 unauthorized")).Once()

	_, err := NewService(rec, fastOptions()).Analyze(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrRecognitionFailed)
	rec.AssertNumberOfCalls(t, "Recognize", 1)
}

func TestService_AnalyzePhoto_BadImage(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	_, err := NewService(rec, fastOptions()).AnalyzePhoto(context.Background(), []byte("nope"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.NotErrorIs(t, err, ErrRecognitionFailed)
	rec.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestService_AnalyzePhoto_SendsJPEG(t *testing.T) {
	t.Parallel()

	rec := new(MockRecognizer)
	rec.On("Recognize", mock.Anything, mock.MatchedBy(func(img Image) bool {
		return img.MediaType == "image/jpeg" && len(img.Data) > 0
	})).Return(`{"food_name":"toast","total_mass_g":60}`, nil).Once()

	res, err := NewService(rec, fastOptions()).AnalyzePhoto(context.Background(), pngBytes(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, "toast", res.FoodName)
	rec.AssertExpectations(t)
}
