package service

import "context"

// PasswordService exposes the password analysis endpoints.
type PasswordService interface {
	CheckPassword(password string) PasswordStrength
	CheckPwnedPassword(ctx context.Context, password string) BreachResult
}

// BreachLookup is satisfied by *BreachChecker.
type BreachLookup interface {
	Check(ctx context.Context, password string) BreachResult
}

type passwordService struct {
	evaluator *StrengthEvaluator
	breaches  BreachLookup
}

// NewPasswordService builds a PasswordService.
func NewPasswordService(evaluator *StrengthEvaluator, breaches BreachLookup) PasswordService {
	return &passwordService{evaluator: evaluator, breaches: breaches}
}

func (s *passwordService) CheckPassword(password string) PasswordStrength {
	return s.evaluator.Evaluate(password)
}

func (s *passwordService) CheckPwnedPassword(ctx context.Context, password string) BreachResult {
	return s.breaches.Check(ctx, password)
}
