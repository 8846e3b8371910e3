package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorCyan     = "\033[36m"
	colorBold     = "\033[1m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner renders the startup header.
func PrintBanner() {
	width := termWidth()
	if width > 72 {
		width = 72
	}
	rule := strings.Repeat("─", width)

	fmt.Println(colorNeonCyan + rule + colorReset)
	fmt.Println(colorBold + colorNeonMag + "  CLAIMPILOT — warranty claim workflow agent" + colorReset)
	fmt.Printf(colorCyan+"  go %s · %s/%s · started %s"+colorReset+"\n",
		strings.TrimPrefix(runtime.Version(), "go"),
		runtime.GOOS, runtime.GOARCH,
		startTime.Format("15:04:05"))
	fmt.Println(colorNeonCyan + rule + colorReset)
}

// PrintLiveStatus renders a one-line status summary.
func PrintLiveStatus() {
	role, claim, beat := GetStatus()
	if claim == "" {
		claim = "-"
	}
	fmt.Printf(colorCyan+"[ %s ] claim=%s uptime=%s heartbeat=%s"+colorReset+"\n",
		role, claim,
		time.Since(startTime).Round(time.Second),
		beat.Format("15:04:05"))
}
