package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
)

// ScriptVerifier delegates the remote check to an external command. The
// command receives the key and the account credentials in its environment
// and reports the classification on the first line of stdout, matching the
// VerifyStatus tokens. Anything after the first line becomes the message.
//
// This keeps the storefront automation out of process: the command can be a
// headless-browser script, a fixture for local runs, whatever the deployment
// provides.
type ScriptVerifier struct {
	command string
	timeout time.Duration
	account *domain.Account
}

// NewScriptVerifierFactory builds a factory for the given command template.
func NewScriptVerifierFactory(command string, timeout time.Duration) VerifierFactory {
	return func() Verifier {
		return &ScriptVerifier{command: command, timeout: timeout}
	}
}

// Login stores the credentials for the upcoming CheckKey call. The external
// command owns the actual session.
func (v *ScriptVerifier) Login(_ context.Context, account *domain.Account) error {
	if v.command == "" {
		return errors.New("no verifier command configured")
	}
	v.account = account
	return nil
}

func (v *ScriptVerifier) Navigate(_ context.Context) error {
	return nil
}

func (v *ScriptVerifier) CheckKey(ctx context.Context, formattedKey string) (VerifyResult, error) {
	if v.account == nil {
		return VerifyResult{}, errors.New("check attempted before login")
	}

	runCtx := ctx
	if v.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", v.command)
	cmd.Env = append(cmd.Environ(),
		"MKC_KEY="+formattedKey,
		"MKC_ACCOUNT_EMAIL="+v.account.Email,
		"MKC_ACCOUNT_PASSWORD="+v.account.Password,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return VerifyResult{}, fmt.Errorf("verifier command failed: %w (%s)",
			err, strings.TrimSpace(stderr.String()))
	}

	return parseVerifyOutput(stdout.String())
}

func (v *ScriptVerifier) Logout(_ context.Context) error {
	v.account = nil
	return nil
}

func (v *ScriptVerifier) Close() error {
	v.account = nil
	return nil
}

func parseVerifyOutput(out string) (VerifyResult, error) {
	status, message, _ := strings.Cut(strings.TrimSpace(out), "\n")
	status = strings.ToLower(strings.TrimSpace(status))
	message = strings.TrimSpace(message)

	switch VerifyStatus(status) {
	case VerifySuccess, VerifyUsed, VerifyInvalid, VerifyRegionError, VerifyDisabled:
		return VerifyResult{Status: VerifyStatus(status), Message: message}, nil
	case "":
		return VerifyResult{}, errors.New("verifier command produced no output")
	default:
		return VerifyResult{Status: VerifyUnknown, Message: status}, nil
	}
}
