package runner_test

import (
	"context"
	"fmt"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/runctx"
)

// Nightly units are filtered before setup, assumed ones are skipped after
// setup, and scaled draws grow with the multiplier of nightly runs.
func Example() {
	suite := runner.Suite{
		Name: "examples.NightlyTests",
		Units: []runner.Unit{
			{
				Name:    "nightlyOnly",
				Nightly: true,
				Body:    func(*runner.T) error { return nil },
			},
			{
				Name: "nightlyOnlyWithAssume",
				Body: func(t *runner.T) error {
					return t.AssumeNightly()
				},
			},
			{
				Name: "scaling",
				Body: func(t *runner.T) error {
					t.Logger().Infof("Mode: %s, multiplier: %g", t.Mode(), t.Multiplier())
					for i := 0; i < 10; i++ {
						v, err := t.ScaledIntBetween(0, 100)
						if err != nil {
							return err
						}
						t.Logger().Infof("random scaled int = %d", v)
					}
					return nil
				},
			},
		},
	}

	mode := runctx.Normal
	run, err := runctx.Initialize(runctx.Params{Mode: &mode, NightlyMultiplier: runctx.DefaultNightlyMultiplier})
	if err != nil {
		panic(err)
	}
	results, _ := runner.NewRunner(runner.Config{}, run).Run(context.Background(), suite)
	for _, r := range results {
		fmt.Println(r.Identity, r.Outcome)
	}
	// Output:
	// examples.NightlyTests.nightlyOnly statically skipped
	// examples.NightlyTests.nightlyOnlyWithAssume dynamically skipped
	// examples.NightlyTests.scaling executed
}
