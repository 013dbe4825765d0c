package main

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeNotification_Fields(t *testing.T) {
	n := decodeNotification(strings.NewReader(`{
		"build_id": "b1",
		"step": "gradle assemble",
		"step_index": 3,
		"status": "running",
		"run_id": "123",
		"apk_url": "http://x/app.apk",
		"aab_url": "http://x/app.aab",
		"extra": {"ignored": true}
	}`))
	if n.BuildID != "b1" || n.Status != "running" || n.APKURL != "http://x/app.apk" || n.AABURL != "http://x/app.aab" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Step.Value != "gradle assemble" || n.StepIndex.Value != 3 || n.RunID.Value != "123" {
		t.Fatalf("unexpected step fields %+v", n)
	}
}

func TestDecodeNotification_WrongTypesAreAbsent(t *testing.T) {
	n := decodeNotification(strings.NewReader(`{"build_id":"b1","step":[],"step_index":"three","status":true,"run_id":{},"apk_url":1}`))
	if n.Step.Set || n.StepIndex.Set || n.RunID.Set {
		t.Fatalf("wrong-typed optional fields must be absent: %+v", n)
	}
	if n.Status != "" || n.APKURL != "" {
		t.Fatalf("wrong-typed strings must be empty: %+v", n)
	}
}

func TestDecodeNotification_NumericStepAndRunIDKeepLiteral(t *testing.T) {
	n := decodeNotification(strings.NewReader(`{"build_id":"b1","run_id":123456789,"step":7}`))
	if !n.RunID.Set || n.RunID.Null || n.RunID.Value != "123456789" {
		t.Fatalf("run_id=%+v, want 123456789", n.RunID)
	}
	if !n.Step.Set || n.Step.Null || n.Step.Value != "7" {
		t.Fatalf("step=%+v, want 7", n.Step)
	}
}

func TestDecodeNotification_StepIndex(t *testing.T) {
	cases := map[string]struct {
		set   bool
		null  bool
		value int64
	}{
		`{"step_index":0}`:    {set: true, value: 0},
		`{"step_index":4.0}`:  {set: true, value: 4},
		`{"step_index":4.5}`:  {},
		`{"step_index":null}`: {set: true, null: true},
		`{}`:                  {},
	}
	for body, want := range cases {
		n := decodeNotification(strings.NewReader(body))
		if n.StepIndex.Set != want.set || n.StepIndex.Null != want.null || n.StepIndex.Value != want.value {
			t.Fatalf("body=%s: step_index=%+v, want %+v", body, n.StepIndex, want)
		}
	}
}

func TestDecodeNotification_BuildID(t *testing.T) {
	cases := map[string]string{
		`{"build_id":"b1"}`:   "b1",
		`{"build_id":" b1 "}`: " b1 ",
		`{"build_id":17}`:     "17",
		`{"build_id":-1.5}`:   "-1.5",
		`{"build_id":0}`:      "",
		`{"build_id":true}`:   "true",
		`{"build_id":false}`:  "",
		`{"build_id":[]}`:     "",
		`{"build_id":null}`:   "",
		`null`:                "",
	}
	for body, want := range cases {
		if got := decodeNotification(strings.NewReader(body)).BuildID; got != want {
			t.Fatalf("body=%s: build_id=%q, want %q", body, got, want)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestDecodeNotification_UnreadableBody(t *testing.T) {
	if n := decodeNotification(failingReader{}); n.BuildID != "" {
		t.Fatalf("expected empty notification, got %+v", n)
	}
	if n := decodeNotification(nil); n.BuildID != "" {
		t.Fatalf("expected empty notification, got %+v", n)
	}
}
