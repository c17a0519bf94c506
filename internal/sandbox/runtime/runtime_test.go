package runtime_test

import (
	"testing"

	"execbox/internal/sandbox/runtime"
	pkgerrors "execbox/pkg/errors"
)

func validSpecs() []runtime.LanguageSpec {
	return []runtime.LanguageSpec{
		{
			ID:         "python3",
			Name:       "Python",
			SourceFile: "main.py",
			RunCmdTpl:  "/usr/bin/python3 {source}",
		},
		{
			ID:             "cpp",
			Name:           "C++",
			SourceFile:     "main.cpp",
			BinaryFile:     "main",
			CompileEnabled: true,
			CompileCmdTpl:  "/usr/bin/g++ -O2 -o {binary} {source}",
			RunCmdTpl:      "./{binary}",
		},
	}
}

func TestRegistryResolve(t *testing.T) {
	reg, err := runtime.NewRegistry(validSpecs())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	lang, err := reg.Resolve("python3")
	if err != nil {
		t.Fatalf("resolve python3: %v", err)
	}
	if lang.SourceFile != "main.py" {
		t.Fatalf("expected source file main.py, got %s", lang.SourceFile)
	}
}

func TestRegistryResolveUnsupported(t *testing.T) {
	reg, err := runtime.NewRegistry(validSpecs())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	_, err = reg.Resolve("cobol")
	if err == nil {
		t.Fatalf("expected error for unknown language")
	}
	if pkgerrors.GetCode(err) != pkgerrors.UnsupportedLanguage {
		t.Fatalf("expected UnsupportedLanguage, got %d", pkgerrors.GetCode(err))
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	specs := validSpecs()
	specs = append(specs, specs[0])
	if _, err := runtime.NewRegistry(specs); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
}

func TestRegistryRejectsCompileWithoutBinary(t *testing.T) {
	specs := []runtime.LanguageSpec{{
		ID:             "c",
		SourceFile:     "main.c",
		CompileEnabled: true,
		CompileCmdTpl:  "gcc {source}",
		RunCmdTpl:      "./a.out",
	}}
	if _, err := runtime.NewRegistry(specs); err == nil {
		t.Fatalf("expected missing binary file to be rejected")
	}
}

func TestRegistryRejectsMalformedTemplate(t *testing.T) {
	specs := []runtime.LanguageSpec{{
		ID:         "broken",
		SourceFile: "main.sh",
		RunCmdTpl:  `sh "unterminated`,
	}}
	if _, err := runtime.NewRegistry(specs); err == nil {
		t.Fatalf("expected malformed template to fail registry construction")
	}
}

func TestLanguagesSorted(t *testing.T) {
	reg, err := runtime.NewRegistry(validSpecs())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	langs := reg.Languages()
	if len(langs) != 2 {
		t.Fatalf("expected 2 languages, got %d", len(langs))
	}
	if langs[0].ID != "cpp" || langs[1].ID != "python3" {
		t.Fatalf("expected sorted ids [cpp python3], got [%s %s]", langs[0].ID, langs[1].ID)
	}
}

func TestBuildCommandSubstitutesPlaceholders(t *testing.T) {
	lang := runtime.LanguageSpec{SourceFile: "main.cpp", BinaryFile: "main"}
	cmd, err := runtime.BuildCommand("/usr/bin/g++ -O2 -o {binary} {source}", lang)
	if err != nil {
		t.Fatalf("build command: %v", err)
	}
	want := []string{"/usr/bin/g++", "-O2", "-o", "main", "main.cpp"}
	if len(cmd) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(cmd), cmd)
	}
	for i := range want {
		if cmd[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, want[i], cmd[i])
		}
	}
}

func TestBuildCommandPlaceholderCannotSplitArgs(t *testing.T) {
	// Substitution happens after shell splitting, so a file name with a
	// space stays a single argv entry.
	lang := runtime.LanguageSpec{SourceFile: "my file.py"}
	cmd, err := runtime.BuildCommand("python3 {source}", lang)
	if err != nil {
		t.Fatalf("build command: %v", err)
	}
	if len(cmd) != 2 {
		t.Fatalf("expected 2 args, got %d: %v", len(cmd), cmd)
	}
	if cmd[1] != "my file.py" {
		t.Fatalf("expected single argument %q, got %q", "my file.py", cmd[1])
	}
}
