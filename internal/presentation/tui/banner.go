package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`              _                                 _     `, "#818cf8"},
	{`   __ _ _ __ (_)_ __ ___   __ _ _ __ __ _ _ __ | |__  `, "#a78bfa"},
	{`  / _' | '_ \| | '_ ' _ \ / _' | '__/ _' | '_ \| '_ \ `, "#c084fc"},
	{` | (_| | | | | | | | | | | (_| | | | (_| | |_) | | | |`, "#e879f9"},
	{`  \__,_|_| |_|_|_| |_| |_|\__, |_|  \__,_| .__/|_| |_|`, "#f472b6"},
	{`                          |___/          |_|          `, "#fb7185"},
}

// PrintBanner writes the ASCII banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		p = termenv.Ascii
	}

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
