package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

// assertLogMatches checks the time format but not the exact time, and expects a match on the
// filename but not the line number.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[3], test.ShouldEqual, expectedParts[3])
	if len(actualParts) == 4 {
		return
	}

	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[4]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[4]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func newBufferLogger(level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &impl{"", NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}, buf
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferLogger(DEBUG)

	logger.Info("frame delivered")
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tINFO\tlogging/impl_test.go:61\tframe delivered")

	logger.Infof("delivered %d frames", 3)
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tINFO\tlogging/impl_test.go:64\tdelivered 3 frames")

	logger.Debugw("batch done", "batch", 2, "items", 1)
	assertLogMatches(t, buf,
		`2023-10-30T09:12:09.459Z	DEBUG	logging/impl_test.go:67	batch done	{"batch":2,"items":1}`)

	// An unpaired key is still logged, with an error as its value.
	logger.Warnw("odd", "dangling")
	assertLogMatches(t, buf,
		`2023-10-30T09:12:09.459Z	WARN	logging/impl_test.go:72	odd	{"dangling":"unpaired log key"}`)
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("kept")
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tERROR\tlogging/impl_test.go:84\tkept")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("now kept")
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tDEBUG\tlogging/impl_test.go:89\tnow kept")
}

func TestContextDebug(t *testing.T) {
	logger, buf := newBufferLogger(INFO)

	logger.CDebug(context.Background(), "dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	ctx := EnableDebugMode(context.Background(), "")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	logger.CDebugf(ctx, "forced %s", "debug")
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tDEBUG\tlogging/impl_test.go:101\tforced debug")
}

func TestSubloggerNames(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := &impl{"detectdemo", NewAtomicLevelAt(INFO), true, []Appender{NewWriterAppender(buf)}}

	sub := logger.Sublogger("delivery").Sublogger("consumer")
	sub.Info("hello")
	output := buf.String()
	test.That(t, output, test.ShouldContainSubstring, "\tdetectdemo.delivery.consumer\t")
	test.That(t, output, test.ShouldContainSubstring, "\thello")
}

func TestObservedTestLogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("item delivered", "index", 4)
	logger.Sublogger("child").Error("boom")

	test.That(t, observed.FilterMessage("item delivered").Len(), test.ShouldEqual, 1)
	entry := observed.FilterMessage("item delivered").All()[0]
	test.That(t, entry.ContextMap()["index"], test.ShouldEqual, int64(4))
	test.That(t, observed.FilterMessage("boom").All()[0].LoggerName, test.ShouldEqual, "child")
}

func TestLevelFromString(t *testing.T) {
	for input, expected := range map[string]Level{
		"debug": DEBUG, "INFO": INFO, "Warn": WARN, "warning": WARN, "error": ERROR,
	} {
		level, err := LevelFromString(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := json.Marshal(ERROR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"Error"`)
}
