package scripting

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
)

// RegisterType creates a named metatable with the given methods and a
// __tostring metamethod, so Go values can be handed to Lua as userdata.
func RegisterType(l *lua.State, name string, functions map[string]lua.Function, toString func(l *lua.State) int) {
	lua.NewMetaTable(l, name)
	l.PushGoFunction(FunctionIndex(functions))
	l.SetField(-2, "__index")
	l.PushGoFunction(toString)
	l.SetField(-2, "__tostring")
	l.Pop(1)
}

// FunctionIndex returns an __index metamethod that resolves method names
// against the provided map.
func FunctionIndex(functions map[string]lua.Function) func(l *lua.State) int {
	return func(l *lua.State) int {
		field := lua.CheckString(l, 2)
		if function, ok := functions[field]; ok {
			l.PushGoFunction(function)
		} else {
			l.PushNil()
		}
		return 1
	}
}

// registerLinkdripLibrary registers the `linkdrip` global library into the
// runtime's Lua state along with the regexp helper type.
func registerLinkdripLibrary(runtime *Runtime) {
	l := runtime.LuaState
	registerRegexType(l)

	funcs := []lua.RegistryFunction{
		// log writes a message into the runtime's log buffer.
		//
		// @param message string The message to log.
		{Name: "log", Function: func(l *lua.State) int {
			message := lua.CheckString(l, 1)
			runtime.record(LogEntry{Time: time.Now(), Text: message})
			return 0
		}},
		// compile compiles a regex pattern into a reusable matcher.
		//
		// @param pattern string The regex pattern.
		// @return regexp The compiled matcher, or nil and an error message.
		{Name: "compile", Function: func(l *lua.State) int {
			pattern, ok := l.ToString(1)
			if !ok {
				l.PushNil()
				l.PushString("Expected regex pattern")
				return 2
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				l.PushNil()
				l.PushString(err.Error())
				return 2
			}
			l.PushUserData(re)
			lua.SetMetaTableNamed(l, "regexp")
			return 1
		}},
		// match checks a pattern directly against a string.
		//
		// @param pattern string The regex pattern.
		// @param text string The text to match.
		// @return boolean Whether the pattern matched.
		{Name: "match", Function: func(l *lua.State) int {
			pattern, patternOk := l.ToString(1)
			text, textOk := l.ToString(2)
			if patternOk && textOk {
				re, err := regexp.Compile(pattern)
				if err != nil {
					l.PushNil()
					l.PushString(fmt.Sprintf("Error compiling regex: %s", err.Error()))
					return 2
				}
				l.PushBoolean(re.MatchString(text))
				return 1
			}
			l.PushNil()
			l.PushString("Invalid arguments: expected pattern and text")
			return 2
		}},
		// quote_meta escapes special regex characters in a string.
		//
		// @param text string The text to escape.
		// @return string The escaped text.
		{Name: "quote_meta", Function: func(l *lua.State) int {
			text, ok := l.ToString(1)
			if ok {
				l.PushString(regexp.QuoteMeta(text))
				return 1
			}
			l.PushNil()
			l.PushString("Expected text")
			return 2
		}},
	}

	lua.NewLibrary(l, funcs)
	l.SetGlobal("linkdrip")
}

// registerRegexType exposes compiled regexes with a small method surface.
func registerRegexType(l *lua.State) {
	funcs := make(map[string]lua.Function)

	funcs["match"] = func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			if text, textOk := l.ToString(2); textOk {
				util.DeepPush(l, re.MatchString(text))
				return 1
			}
		}
		return 0
	}
	funcs["find"] = func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			if text, textOk := l.ToString(2); textOk {
				util.DeepPush(l, re.FindString(text))
				return 1
			}
		}
		return 0
	}
	funcs["find_all"] = func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			if text, textOk := l.ToString(2); textOk {
				util.DeepPush(l, re.FindAllString(text, -1))
				return 1
			}
		}
		return 0
	}
	funcs["replace"] = func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			text, textOk := l.ToString(2)
			replacement, replaceOk := l.ToString(3)
			if textOk && replaceOk {
				util.DeepPush(l, re.ReplaceAllString(text, replacement))
				return 1
			}
		}
		return 0
	}
	funcs["pattern"] = func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			util.DeepPush(l, re.String())
			return 1
		}
		return 0
	}

	RegisterType(l, "regexp", funcs, func(l *lua.State) int {
		if re, ok := l.ToUserData(1).(*regexp.Regexp); ok {
			util.DeepPush(l, fmt.Sprintf("Regexp { Pattern: %s }", re.String()))
			return 1
		}
		util.DeepPush(l, "Invalid Regexp")
		return 1
	})
}
