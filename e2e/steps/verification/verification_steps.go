package verification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	StatusCode() int
	GetResponseField(field string) (any, error)
	DecodeResponse(out any) error
	Remember(name, value string)
}

// RegisterSteps registers verification request step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I open a "([^"]*)" verification for customer "([^"]*)" with:$`, steps.openVerification)
	ctx.Step(`^I attach a processed "([^"]*)" with confidence ([0-9.]+) and fields:$`, steps.attachDocument)
	ctx.Step(`^I process the verification$`, steps.process)
	ctx.Step(`^I list the discrepancies$`, steps.listDiscrepancies)
	ctx.Step(`^I resolve the discrepancy on "([^"]*)" as "([^"]*)"$`, steps.resolveDiscrepancy)
	ctx.Step(`^I (approve|reject) the verification because "([^"]*)"$`, steps.override)

	ctx.Step(`^the verification should have status "([^"]*)"$`, steps.statusShouldBe)
	ctx.Step(`^there should be a discrepancy on "([^"]*)" with severity "([^"]*)"$`, steps.discrepancyShouldExist)
}

type verificationSteps struct {
	tc TestContext

	requestID     string
	discrepancies []discrepancy
}

type discrepancy struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Severity string `json:"severity"`
}

func (s *verificationSteps) openVerification(ctx context.Context, set, customer string, table *godog.Table) error {
	data, err := keyValues(table)
	if err != nil {
		return err
	}
	if err := s.tc.POST("/verifications", map[string]any{
		"customer_id":   customer,
		"document_set":  set,
		"customer_data": data,
	}); err != nil {
		return err
	}
	if s.tc.StatusCode() != 201 {
		return fmt.Errorf("create verification: status %d", s.tc.StatusCode())
	}
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.requestID = fmt.Sprint(v)
	s.tc.Remember("request_id", s.requestID)
	return nil
}

func (s *verificationSteps) attachDocument(ctx context.Context, docType string, confidence float64, table *godog.Table) error {
	values, err := keyValues(table)
	if err != nil {
		return err
	}
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = map[string]any{"value": v, "confidence": confidence}
	}
	if err := s.tc.POST(s.path("/documents"), map[string]any{
		"document_type":      docType,
		"processed":          true,
		"fields":             fields,
		"overall_confidence": confidence,
	}); err != nil {
		return err
	}
	if s.tc.StatusCode() != 201 {
		return fmt.Errorf("attach document: status %d", s.tc.StatusCode())
	}
	return nil
}

func (s *verificationSteps) process(ctx context.Context) error {
	return s.tc.POST(s.path("/process"), nil)
}

func (s *verificationSteps) listDiscrepancies(ctx context.Context) error {
	if err := s.tc.GET(s.path("/discrepancies")); err != nil {
		return err
	}
	var list struct {
		Discrepancies []discrepancy `json:"discrepancies"`
	}
	if err := s.tc.DecodeResponse(&list); err != nil {
		return err
	}
	s.discrepancies = list.Discrepancies
	return nil
}

func (s *verificationSteps) resolveDiscrepancy(ctx context.Context, field, resolution string) error {
	for _, d := range s.discrepancies {
		if d.Field == field {
			return s.tc.POST(s.path("/discrepancies/"+d.ID+"/resolve"), map[string]any{
				"resolution": resolution,
				"note":       "checked against the original document",
			})
		}
	}
	return fmt.Errorf("no discrepancy on %s", field)
}

func (s *verificationSteps) override(ctx context.Context, action, reason string) error {
	return s.tc.POST(s.path("/override"), map[string]any{
		"approve": action == "approve",
		"reason":  reason,
	})
}

func (s *verificationSteps) statusShouldBe(ctx context.Context, want string) error {
	if err := s.tc.GET(s.path("")); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected status %q, got %q", want, got)
	}
	return nil
}

func (s *verificationSteps) discrepancyShouldExist(ctx context.Context, field, severity string) error {
	for _, d := range s.discrepancies {
		if d.Field == field {
			if d.Severity != severity {
				return fmt.Errorf("discrepancy on %s has severity %s", field, d.Severity)
			}
			return nil
		}
	}
	return fmt.Errorf("no discrepancy on %s among %d", field, len(s.discrepancies))
}

func (s *verificationSteps) path(suffix string) string {
	return "/verifications/" + s.requestID + suffix
}

// keyValues reads a two column table without a header.
func keyValues(table *godog.Table) (map[string]string, error) {
	out := make(map[string]string, len(table.Rows))
	for i, row := range table.Rows {
		if len(row.Cells) != 2 {
			return nil, fmt.Errorf("row %s: expected 2 cells, got %d", strconv.Itoa(i+1), len(row.Cells))
		}
		out[row.Cells[0].Value] = row.Cells[1].Value
	}
	return out, nil
}
