package app

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyEnter     = "enter"
	KeyTab       = "tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyJ         = "j"
	KeyK         = "k"
	KeyDiscard   = "d"
	KeyPlay      = "p"
	KeyCopy      = "y"
	KeyDelete    = "x"
	KeyRefresh   = "r"
	KeySignOut   = "s"
	KeyEsc       = "esc"
	KeyBackspace = "backspace"
)
