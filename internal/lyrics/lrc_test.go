package lyrics

import (
	"math"
	"testing"
)

func TestParseLRC(t *testing.T) {
	content := `[ti:Test]
[ar:Someone]
[00:01.5]tenths
[00:02.49]centiseconds
[00:03.490]milliseconds
[00:10.00][00:20.00]chorus
[00:15.00]
[01:00]no fraction
not a lyric line`

	lines := ParseLRC(content)

	want := []struct {
		time float64
		text string
	}{
		{1.5, "tenths"},
		{2.49, "centiseconds"},
		{3.49, "milliseconds"},
		{10, "chorus"},
		{20, "chorus"},
		{60, "no fraction"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %+v", len(want), len(lines), lines)
	}
	for i, w := range want {
		if math.Abs(lines[i].Time-w.time) > 1e-9 || lines[i].Text != w.text {
			t.Errorf("line %d = {%v %q}, want {%v %q}", i, lines[i].Time, lines[i].Text, w.time, w.text)
		}
		if _, ok := lines[i].End(); ok {
			t.Errorf("LRC line %d should not have an end time", i)
		}
	}
}

func TestParseLRCEmpty(t *testing.T) {
	if lines := ParseLRC(""); len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
	if lines := ParseLRC("plain lyrics without tags\nsecond line"); len(lines) != 0 {
		t.Errorf("plain text should produce no lines, got %d", len(lines))
	}
}

func TestNormalizeStable(t *testing.T) {
	lines := []Line{
		{Time: 5, Text: "c"},
		{Time: 1, Text: "a1"},
		{Time: 1, Text: "a2"},
	}
	if IsSorted(lines) {
		t.Fatal("input should not be sorted")
	}
	out := Normalize(lines)
	if !IsSorted(out) || out[0].Text != "a1" || out[1].Text != "a2" {
		t.Errorf("unexpected order %+v", out)
	}
	if lines[0].Text != "c" {
		t.Error("Normalize modified its input")
	}
}

func TestMergeSameTime(t *testing.T) {
	lines := []Line{
		{Time: 1, Text: "夢ならば"},
		{Time: 1, EndTime: Seconds(4), Text: "如果是梦"},
		{Time: 5, Text: "next"},
	}
	merged := MergeSameTime(lines)
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(merged))
	}
	if merged[0].Text != "夢ならば\n如果是梦" {
		t.Errorf("unexpected merged text %q", merged[0].Text)
	}
	if end, ok := merged[0].End(); !ok || end != 4 {
		t.Errorf("merged line should keep end time 4, got %v %v", end, ok)
	}
	if lines[0].Text != "夢ならば" {
		t.Error("MergeSameTime modified its input")
	}
}
