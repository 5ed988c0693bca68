// Package lib provides a Go SDK for applying to jobs and tracking the
// resulting applications programmatically.
//
// This package allows applications to drive peebo without shelling out to the
// peebo CLI binary or talking to the local server. It is useful for scripting
// bulk applications and building tools on top of the tracked applications.
//
// # Quick Start
//
// Create a client, apply to a job and wait for the result:
//
//	client, err := lib.New(ctx, lib.Config{
//	    ProviderAPIKey: os.Getenv("BROWSER_USE_API_KEY"),
//	    Applicant:      me,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	task, err := client.Apply(ctx, lib.ApplyOpts{JobURL: "https://jobs.lever.co/acme/123"})
//	task, err = client.WaitTask(ctx, task.ID)
//	fmt.Println(task.Status, task.Output)
//
// # Tasks
//
// An apply task runs on a remote browser agent and is polled in the
// background. Only one task runs at a time per client. A completed task
// records an application, use [Client.ListApplications] to read them.
//
// # Emails
//
// [Client.SyncEmails] classifies inbound emails and moves the matching
// applications forward (applied, interviewing, rejected or offer). Statuses
// never move backwards and syncing the same email twice is a no-op.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: The task or application does not exist.
//   - [ErrNotValid]: Invalid input or operation (e.g. cancelling a finished task).
//   - [ErrAlreadyRunning]: Another task is running.
//
// # Testing
//
// Use [ProviderFake] and an in memory store to write tests without a real
// browser agent:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    InMemory:  true,
//	    Provider:  lib.ProviderFake,
//	    Applicant: me,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
