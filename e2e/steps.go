package e2e

import (
	"github.com/cucumber/godog"

	"docverify/e2e/steps/common"
	"docverify/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// authentication, generic requests and assertions
	common.RegisterSteps(ctx, tc)

	verification.RegisterSteps(ctx, tc)
}
