package main

import (
	"context"
	"strings"
	"testing"

	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/runner"
	"github.com/rsquared-project/witness-manager/internal/secrets"
)

// stubHappyWallet scripts a full successful rotation over the docker
// backend: readiness probe, key verification, keypair generation,
// authorization and the container relaunch.
func stubHappyWallet(fake *runner.Fake) {
	fake.Stub("docker", "--suggest-brain-key", runner.Result{
		Stdout: `{"pub_key":"RQRXnewkey","wif_priv_key":"5Jnewwif"}`,
	}, nil)
	// Authorize runs cli_wallet with -H appended.
	fake.Stub("docker", "-H", runner.Result{Stdout: "broadcasting transaction\n{}"}, nil)
	// Everything else (readiness probes, verification, node relaunch).
	fake.Stub("docker", "", runner.Result{
		Stdout: `get_info {"head_block_time":"2026-08-25T10:00:00","id":"1.6.7"}`,
	}, nil)
}

func TestHandleRotate_StoredConfigSuccess(t *testing.T) {
	origOutput, origQuiet := flagOutput, flagQuiet
	defer func() { flagOutput, flagQuiet = origOutput, origQuiet }()
	flagOutput, flagQuiet = "text", true

	p := &mockPrompter{interactive: true, secrets: []string{"pw"}}
	d, fake := testDeps(t, p)
	stubHappyWallet(fake)

	stored := secrets.Request{AccountName: "init0", URL: "https://w.example", PrivateKeyWIF: "5Joldwif"}
	if err := d.Store.Save(stored, "pw"); err != nil {
		t.Fatal(err)
	}

	if err := handleRotate(context.Background(), d, rotateOptions{NoTUI: true}); err != nil {
		t.Fatalf("handleRotate: %v", err)
	}

	// The store now holds the newly issued key.
	reloaded, err := d.Store.Load("pw")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.PrivateKeyWIF != "5Jnewwif" || reloaded.PublicKey != "RQRXnewkey" {
		t.Errorf("store not refreshed: %+v", reloaded)
	}

	// The relaunch passed the new key pair to the node.
	var relaunch string
	for _, call := range fake.Calls {
		joined := strings.Join(call.Args, " ")
		if strings.Contains(joined, "--witness-id") {
			relaunch = joined
		}
	}
	if relaunch == "" {
		t.Fatal("node was not relaunched in witness mode")
	}
	if !strings.Contains(relaunch, "1.6.7") || !strings.Contains(relaunch, "5Jnewwif") {
		t.Errorf("relaunch args missing identity or key: %s", relaunch)
	}
}

func TestHandleRotate_InvalidKeyFails(t *testing.T) {
	origOutput, origQuiet := flagOutput, flagQuiet
	defer func() { flagOutput, flagQuiet = origOutput, origQuiet }()
	flagOutput, flagQuiet = "text", true

	d, fake := testDeps(t, &mockPrompter{interactive: false})
	// Readiness succeeds, then verification trips the invalid-key scan.
	fake.Stub("docker", "--suggest-brain-key", runner.Result{Stdout: "{}"}, nil)
	fake.Stub("docker", "", runner.Result{
		Stdout: "get_info\n10 assert_exception: Invalid private key",
	}, nil)

	err := handleRotate(context.Background(), d, rotateOptions{
		Account:  "init0",
		WIFStdin: true,
		Stdin:    strings.NewReader("5Jbadkey"),
	})
	if err == nil {
		t.Fatal("expected rotation failure")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.RotationFailed {
		t.Errorf("exit code = %d, want %d", code, exitcodes.RotationFailed)
	}

	// A failed verification must never reach the relaunch.
	for _, call := range fake.Calls {
		joined := strings.Join(call.Args, " ")
		if strings.Contains(joined, "--witness-id") {
			t.Errorf("node relaunched despite failed verification: %s", joined)
		}
	}
}
