package main

// ActionExecutor runs named actions for both the keyboard and the mouse
// binding managers.
type ActionExecutor struct{}

func NewActionExecutor() *ActionExecutor {
	return &ActionExecutor{}
}

// ExecuteAction executes the given action; unknown names return false
func (ae *ActionExecutor) ExecuteAction(action string, inputActions InputActions) bool {
	var err error
	switch action {
	case "exit":
		inputActions.Exit()
	case "help":
		inputActions.ToggleHelp()
	case "left":
		inputActions.Left()
	case "right":
		inputActions.Right()
	case "next":
		inputActions.NextPane()
	case "previous":
		inputActions.PrevPane()
	case "first":
		inputActions.FirstPane()
	case "last":
		inputActions.LastPane()
	case "spread_1":
		_, err = inputActions.SetPageSpread(1)
	case "spread_2":
		_, err = inputActions.SetPageSpread(2)
	case "view_pagefit":
		_, err = inputActions.SetViewMode(ViewPageFit)
	case "view_pagewidth":
		_, err = inputActions.SetViewMode(ViewPageWidth)
	case "view_panel":
		_, err = inputActions.SetViewMode(ViewPanel)
	case "fullscreen":
		inputActions.ToggleFullscreen()
	default:
		return false
	}

	if err != nil {
		inputActions.ShowOverlayMessage(err.Error())
	}
	return true
}

// globalActionExecutor is shared by the keyboard and mouse managers
var globalActionExecutor = NewActionExecutor()
