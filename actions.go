package main

// ActionDefinition defines an action with its default keybindings, mouse bindings, and description
type ActionDefinition struct {
	Name         string
	Keys         []string
	MouseActions []string
	Description  string
}

// actionDefinitions contains all reader actions with their default bindings
var actionDefinitions = []ActionDefinition{
	{"exit", []string{"Escape", "KeyQ"}, []string{}, "Quit"},
	{"help", []string{"Shift+Slash"}, []string{"Alt+RightClick"}, "Show/hide help"},
	{"left", []string{"ArrowLeft"}, []string{"WheelLeft"}, "Move one spread to the left"},
	{"right", []string{"ArrowRight"}, []string{"WheelRight"}, "Move one spread to the right"},
	{"next", []string{"Space", "PageDown", "KeyN"}, []string{"WheelDown"}, "Next spread"},
	{"previous", []string{"Backspace", "PageUp", "KeyP"}, []string{"WheelUp"}, "Previous spread"},
	{"first", []string{"Home"}, []string{}, "Jump to the first spread"},
	{"last", []string{"End"}, []string{}, "Jump to the last spread"},
	{"spread_1", []string{"Key1"}, []string{}, "Show one page at a time"},
	{"spread_2", []string{"Key2"}, []string{}, "Show two-page spreads"},
	{"view_pagefit", []string{"KeyW"}, []string{}, "Fit the whole page"},
	{"view_pagewidth", []string{"KeyE"}, []string{}, "Fit the page width"},
	{"view_panel", []string{"KeyR"}, []string{}, "Panel by panel"},
	{"fullscreen", []string{"KeyF"}, []string{"DoubleMiddleClick"}, "Toggle fullscreen"},
}

func actionByName(name string) (ActionDefinition, bool) {
	for _, a := range actionDefinitions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDefinition{}, false
}

// GetDefaultKeybindings returns a map of action names to their default keybindings
func GetDefaultKeybindings() map[string][]string {
	keybindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		keybindings[action.Name] = append([]string(nil), action.Keys...)
	}
	return keybindings
}

// GetDefaultMousebindings returns a map of action names to their default mouse bindings
func GetDefaultMousebindings() map[string][]string {
	mousebindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		mousebindings[action.Name] = append([]string(nil), action.MouseActions...)
	}
	return mousebindings
}
