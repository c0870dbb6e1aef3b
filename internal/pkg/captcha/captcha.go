// Package captcha issues simple arithmetic challenges to anonymous visitors.
// The expected answer lives in the visitor store and can be checked once.
package captcha

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/mx-space/comments/internal/pkg/session"
)

const storeKey = "captcha"

var questions = []string{
	"Please add %d and %d.",
	"What is the sum of %d and %d?",
	"Please calculate %d plus %d.",
}

// Service generates and verifies challenges.
type Service struct {
	store session.Store
	intn  func(n int) int
}

func New(store session.Store) *Service {
	return &Service{store: store, intn: rand.IntN}
}

// Generate creates a new challenge for the visitor, replacing any previous one,
// and returns the question to display.
func (s *Service) Generate(ctx context.Context, visitorID string) (string, error) {
	a, b := s.intn(9)+1, s.intn(9)+1
	question := fmt.Sprintf(questions[s.intn(len(questions))], a, b)
	if err := s.store.Set(ctx, visitorID, storeKey, strconv.Itoa(a+b)); err != nil {
		return "", err
	}
	return question, nil
}

// Verify checks the answer against the stored challenge. The challenge is
// consumed whether or not the answer matches.
func (s *Service) Verify(ctx context.Context, visitorID, answer string) (bool, error) {
	expected, err := s.store.Take(ctx, visitorID, storeKey)
	if err != nil {
		return false, err
	}
	if expected == "" {
		return false, nil
	}
	return strings.TrimSpace(answer) == expected, nil
}
