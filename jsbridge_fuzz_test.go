//go:build go1.18 && !race
// +build go1.18,!race

package jsbridge

import (
	"testing"
	"unicode/utf8"
)

// Fuzzing spins up a runtime per input, which is too slow under the race
// detector; the build tag keeps -race runs fast.

func FuzzEval(f *testing.F) {
	seeds := []string{
		"",
		"1 + 2",
		"null",
		"undefined",
		`"str"`,
		"[]",
		"({})",
		"() => {}",
		"class A {}",
		"let x = 1",
		"for (;;) break",
		"try {} catch (e) {}",
		"throw 1",
		"new Date()",
		"Symbol('x')",
		"10n ** 2n",
		"a?.b ?? c",
		"[...[], ...[]]",
		"`${1}`",
		"/re/.test('re')",
		"JSON.parse('[1]')",
		"Promise.resolve(1)",
		"0b1010 + 0o17 + 0x1f",
		"'\\u{1F600}'",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, code string) {
		if !utf8.ValidString(code) {
			return
		}

		rt, err := NewRuntime()
		if err != nil {
			return
		}
		defer rt.Close()

		ctx, err := rt.NewContext()
		if err != nil {
			return
		}
		defer ctx.Close()

		// Invalid programs must error, never panic.
		result, err := ctx.Eval(code)
		if err != nil {
			return
		}

		// Whatever came back must survive inspection and handle churn.
		_ = result.Typeof()
		_ = result.String()
		if !result.StrictEquals(result) && !result.IsNumber() {
			t.Errorf("Eval(%q): result not strictly equal to itself", code)
		}
		dup := result.Dup()
		dup.Free()
		_ = result.IsObject()
	})
}

func FuzzParseJSON(f *testing.F) {
	seeds := []string{
		"{}", "[]", "null", "true", "0", "-1.5e3",
		`"s"`, `{"a": [1, {"b": null}]}`, `[[[[[]]]]]`,
		`{"a"`, `[1,]`, "NaN", `{"k": 1e999}`,
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			return
		}

		rt, err := NewRuntime()
		if err != nil {
			return
		}
		defer rt.Close()

		ctx, err := rt.NewContext()
		if err != nil {
			return
		}
		defer ctx.Close()

		v, err := ctx.ParseJSON(input)
		if err != nil {
			return
		}
		// Parsed values must stringify without panicking.
		_, _ = v.JSONStringify()
	})
}
