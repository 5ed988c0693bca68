package lib_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peebo/peebo/pkg/lib"
)

// This example shows how to apply to a job using the fake provider for testing.
func Example_testing() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		InMemory:     true,
		Provider:     lib.ProviderFake,
		PollInterval: time.Millisecond,
		Applicant: lib.Applicant{
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Phone:    "+1 555 0100",
			Location: "Berlin",
			LinkedIn: "https://linkedin.com/in/janedoe",
		},
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	task, err := client.Apply(ctx, lib.ApplyOpts{
		JobURL: "https://jobs.lever.co/acme/123",
		Role:   "Platform Engineer",
	})
	if err != nil {
		panic(err)
	}

	task, err = client.WaitTask(ctx, task.ID)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s at %s: %s\n", task.Role, task.Company, task.Status)

	// Output:
	// Platform Engineer at Acme: completed
}

// This example shows how to classify an email.
func ExampleClient_ClassifyEmail() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{InMemory: true, Provider: lib.ProviderFake})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	c, err := client.ClassifyEmail(ctx, lib.Email{
		Subject:     "Interview invitation",
		BodyPreview: "We would like to schedule an interview with you.",
		FromAddress: "Globex Recruiting <talent@globex.com>",
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s from %s\n", c.Type, c.Company)

	// Output:
	// interview from Globex
}

// This example shows how to handle SDK errors using errors.Is.
func Example_errorHandling() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{InMemory: true, Provider: lib.ProviderFake})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	_, err = client.GetTask(ctx, "nonexistent")
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("task not found")
	}

	// The client has no applicant profile.
	_, err = client.Apply(ctx, lib.ApplyOpts{JobURL: "https://jobs.lever.co/acme/123"})
	if errors.Is(err, lib.ErrNotValid) {
		fmt.Println("invalid profile")
	}

	// Output:
	// task not found
	// invalid profile
}
