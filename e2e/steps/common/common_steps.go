package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AuthenticateAs(subject, role string) error
	GET(path string) error
	StatusCode() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers authentication and generic assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am authenticated as reviewer "([^"]*)"$`, steps.authenticateAsReviewer)
	ctx.Step(`^I am authenticated as supervisor "([^"]*)"$`, steps.authenticateAsSupervisor)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticateAsReviewer(ctx context.Context, subject string) error {
	return s.tc.AuthenticateAs(subject, "reviewer")
}

func (s *commonSteps) authenticateAsSupervisor(ctx context.Context, subject string) error {
	return s.tc.AuthenticateAs(subject, "supervisor")
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, code int) error {
	if got := s.tc.StatusCode(); got != code {
		return fmt.Errorf("expected status %d, got %d", code, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%s is not a boolean: %v", field, v)
	}
	if fmt.Sprint(b) != want {
		return fmt.Errorf("expected %s to be %s, got %t", field, want, b)
	}
	return nil
}
