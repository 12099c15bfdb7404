package cli

import (
	"fmt"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// cmdCompletion generates shell completion scripts.
func cmdCompletion(args []string) int {
	shell := ""
	alias := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			return printCommandUsage("completion")
		case strings.HasPrefix(arg, "--alias="):
			alias = strings.TrimPrefix(arg, "--alias=")
		case arg == "--alias":
			out.ErrorPrefix("completion: --alias requires a value (--alias=<name>)")
			return errors.ExitConfigError
		case strings.HasPrefix(arg, "-"):
			out.ErrorPrefix("completion: unknown flag: %s", arg)
			return errors.ExitConfigError
		default:
			if shell != "" {
				out.ErrorPrefix("completion: unexpected argument: %s", arg)
				return errors.ExitConfigError
			}
			shell = arg
		}
	}

	if shell == "" {
		out.ErrorPrefix("completion: shell required (bash, zsh, fish)")
		return errors.ExitConfigError
	}

	cmdName := "vdiff"
	if alias != "" {
		cmdName = alias
	}

	var script string
	switch shell {
	case "bash":
		script = generateBashCompletion(cmdName)
	case "zsh":
		script = generateZshCompletion(cmdName)
	case "fish":
		script = generateFishCompletion(cmdName)
	default:
		out.ErrorPrefix("completion: unsupported shell %q (use bash, zsh, or fish)", shell)
		return errors.ExitConfigError
	}
	fmt.Fprint(out.Out(), script)
	return 0
}

func commandNames() []string {
	names := make([]string, 0, len(commandList)+1)
	for _, c := range commandList {
		names = append(names, c.name)
	}
	return append(names, "help")
}

func globalFlags() []string {
	return []string{"--quiet", "--verbose", "--suite", "--help", "--version"}
}

// backendNames lists the keys accepted by --backend and mark.
func backendNames() []string {
	keys := make([]string, 0, len(model.VerdictBackends))
	for _, b := range model.VerdictBackends {
		keys = append(keys, b.Key())
	}
	return keys
}

func stateNames() []string {
	names := make([]string, 0, len(model.AllStates))
	for _, s := range model.AllStates {
		names = append(names, s.String())
	}
	return names
}

func aliasNote(cmdName, hint string) string {
	if cmdName == "vdiff" {
		return fmt.Sprintf(`
# For an alias (e.g. alias vd="vdiff"), generate completion for it directly:
#   %s
`, hint)
	}
	return fmt.Sprintf(`
# Completion for the alias "%s"; define it with: alias %s="vdiff"
`, cmdName, cmdName)
}

func generateBashCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_") + "_completions"
	note := aliasNote(cmdName, `eval "$(vdiff completion bash --alias=vd)"`)

	return fmt.Sprintf(`# vdiff bash completion
# Add to ~/.bashrc: eval "$(vdiff completion bash)"
%s
%s() {
    local cur prev
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    local commands="%s"
    local flags="%s"
    local backends="%s"
    local states="%s"

    case "${prev}" in
        %s|help)
            COMPREPLY=($(compgen -W "${commands} ${flags}" -- "${cur}"))
            return
            ;;
        --suite)
            COMPREPLY=($(compgen -W "own custom" -- "${cur}"))
            return
            ;;
        --backend)
            COMPREPLY=($(compgen -W "${backends}" -- "${cur}"))
            return
            ;;
        --state)
            COMPREPLY=($(compgen -W "${states}" -- "${cur}"))
            return
            ;;
        --format)
            COMPREPLY=($(compgen -W "json yaml" -- "${cur}"))
            return
            ;;
        config)
            COMPREPLY=($(compgen -W "validate" -- "${cur}"))
            return
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "${cur}"))
            return
            ;;
    esac

    if [[ "${COMP_WORDS[1]}" == "mark" ]]; then
        case "${COMP_CWORD}" in
            3) COMPREPLY=($(compgen -W "${backends}" -- "${cur}")); return ;;
            4) COMPREPLY=($(compgen -W "${states}" -- "${cur}")); return ;;
        esac
    fi

    COMPREPLY=($(compgen -W "${flags}" -- "${cur}"))
}

complete -F %s %s
`, note, funcName,
		strings.Join(commandNames(), " "),
		strings.Join(globalFlags(), " "),
		strings.Join(backendNames(), " "),
		strings.Join(stateNames(), " "),
		cmdName, funcName, cmdName)
}

func generateZshCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_")
	note := aliasNote(cmdName, `eval "$(vdiff completion zsh --alias=vd)"`)

	var commands strings.Builder
	for _, c := range commandList {
		fmt.Fprintf(&commands, "        '%s:%s'\n", c.name, strings.ReplaceAll(c.description, "'", ""))
	}
	commands.WriteString("        'help:Show help'\n")

	return fmt.Sprintf(`#compdef %s
# vdiff zsh completion
# Add to ~/.zshrc: eval "$(vdiff completion zsh)"
%s
%s() {
    local -a commands backends states
    commands=(
%s    )
    backends=(%s)
    states=(%s)

    if (( CURRENT == 2 )); then
        _describe -t commands 'command' commands
        return
    fi

    case "${words[CURRENT-1]}" in
        --suite) compadd own custom; return ;;
        --backend) compadd -a backends; return ;;
        --state) compadd -a states; return ;;
        --format) compadd json yaml; return ;;
    esac

    case "${words[2]}" in
        config) compadd validate ;;
        completion) compadd bash zsh fish ;;
        help) _describe -t commands 'command' commands ;;
        mark)
            if (( CURRENT == 4 )); then
                compadd -a backends
            elif (( CURRENT == 5 )); then
                compadd -a states
            fi
            ;;
        *) compadd -- %s ;;
    esac
}

compdef %s %s
`, cmdName, note, funcName, commands.String(),
		strings.Join(backendNames(), " "),
		strings.Join(stateNames(), " "),
		strings.Join(globalFlags(), " "),
		funcName, cmdName)
}

func generateFishCompletion(cmdName string) string {
	var sb strings.Builder

	note := aliasNote(cmdName, "vdiff completion fish --alias=vd | source")
	fmt.Fprintf(&sb, `# vdiff fish completion
# Add to config: vdiff completion fish | source
%s
complete -c %s -f

`, note, cmdName)

	for _, c := range commandList {
		fmt.Fprintf(&sb, "complete -c %s -n '__fish_use_subcommand' -a '%s' -d '%s'\n",
			cmdName, c.name, strings.ReplaceAll(c.description, "'", ""))
	}

	sb.WriteString("\n# Global flags\n")
	fmt.Fprintf(&sb, "complete -c %s -s q -l quiet -d 'Only print errors and results'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -s v -l verbose -d 'Print diagnostics'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -l suite -d 'Test suite' -xa 'own custom'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -l help -d 'Show help'\n", cmdName)

	sb.WriteString("\n# Command flags\n")
	backends := strings.Join(backendNames(), " ")
	states := strings.Join(stateNames(), " ")
	fmt.Fprintf(&sb, "complete -c %s -l backend -d 'Backend' -xa '%s'\n", cmdName, backends)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from list' -l state -d 'Verdict' -xa '%s'\n", cmdName, states)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from render render-all' -l record -d 'Record verdicts'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from render' -l save -d 'Save images'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from report' -l format -xa 'json yaml'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from watch' -l debounce -x\n", cmdName)

	sb.WriteString("\n# Subcommand arguments\n")
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from config' -a 'validate'\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'\n", cmdName)

	return sb.String()
}
