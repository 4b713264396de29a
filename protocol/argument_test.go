package protocol

import "testing"

func TestArgTypeString_AlwaysValid(t *testing.T) {
	arg := argTypeString{}

	tests := []string{
		"",
		"abc",
		"123",
		"hello-world",
	}

	for _, tt := range tests {
		if err := arg.Validate(tt); err != nil {
			t.Fatalf("expected string arg to be valid, got error: %v", err)
		}
	}
}

func TestArgTypeInt64_ValidIntegers(t *testing.T) {
	arg := argTypeInt64{}

	tests := []string{
		"0",
		"1",
		"-1",
		"1700000000000",
	}

	for _, tt := range tests {
		if err := arg.Validate(tt); err != nil {
			t.Fatalf("expected int64 arg %q to be valid, got error: %v", tt, err)
		}
	}
}

func TestArgTypeInt64_InvalidIntegers(t *testing.T) {
	arg := argTypeInt64{}

	tests := []string{
		"",
		"abc",
		"1.5",
		"--1",
		"10a",
	}

	for _, tt := range tests {
		if err := arg.Validate(tt); err != ErrInvalidArg {
			t.Fatalf("expected ErrInvalidArg for %q, got: %v", tt, err)
		}
	}
}

func TestArgTypeInt32_ValidAndInvalid(t *testing.T) {
	arg := argTypeInt32{}

	if err := arg.Validate("128"); err != nil {
		t.Fatalf("expected valid int32, got error: %v", err)
	}
	if err := arg.Validate("4294967296"); err != ErrInvalidArg {
		t.Fatalf("expected ErrInvalidArg for overflow, got: %v", err)
	}
}
