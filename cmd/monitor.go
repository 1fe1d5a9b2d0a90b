// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/openebike/linkview/pkg/motorlink"
	"github.com/openebike/linkview/pkg/motorstate"
	"github.com/openebike/linkview/pkg/motorwire"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for riding-state display and control",
	Long: `Monitor the motor link via an interactive terminal UI.

The top panel shows the decoded riding state (speed, battery, assist,
errors) refreshed continuously; the link goes to dashes when no valid
status frame has arrived for half a second. The assist level, headlight
and walk assist are controlled from the keyboard and encoded in whatever
wire variant the link has locked onto.

Keys:
  up/+      raise assist level        l    toggle headlight
  down/-    lower assist level        w    toggle walk assist
  tab       focus the protocol list   q    quit

Selecting a protocol from the list forces that variant; selecting "auto"
restarts detection.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Focus states
const (
	focusStatus = iota
	focusProtoList
)

// protoItem is one entry of the protocol picker.
type protoItem struct {
	proto motorwire.Protocol
	auto  bool
}

// Implement list.Item interface
func (i protoItem) Title() string {
	if i.auto {
		return "auto"
	}
	return fmt.Sprintf("Variant %s", i.proto)
}

func (i protoItem) Description() string {
	if i.auto {
		return "detect from traffic"
	}
	return fmt.Sprintf("%d baud", motorlink.BitRateFor(i.proto))
}

func (i protoItem) FilterValue() string { return i.Title() }

type monitorModel struct {
	link     *motorlink.Link
	connInfo string
	gears    int

	cmdState motorstate.CommandState

	status motorstate.Status
	online bool
	active motorwire.Protocol
	locked bool
	stats  motorlink.StatisticsSnapshot

	protoList    list.Model
	focusedField int

	width    int
	height   int
	quitting bool
}

type monitorTickMsg time.Time

func monitorTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func initialMonitorModel(l *motorlink.Link, connInfo string, gears int) monitorModel {
	items := []list.Item{
		protoItem{auto: true},
		protoItem{proto: motorwire.ProtoA},
		protoItem{proto: motorwire.ProtoB},
		protoItem{proto: motorwire.ProtoC},
		protoItem{proto: motorwire.ProtoD},
	}
	pl := list.New(items, list.NewDefaultDelegate(), 30, 12)
	pl.Title = "Wire variant"
	pl.SetShowStatusBar(false)
	pl.SetFilteringEnabled(false)
	pl.SetShowHelp(false)

	return monitorModel{
		link:      l,
		connInfo:  connInfo,
		gears:     gears,
		protoList: pl,
		width:     80,
		height:    24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab":
			if m.focusedField == focusStatus {
				m.focusedField = focusProtoList
			} else {
				m.focusedField = focusStatus
			}
			return m, nil

		case "enter":
			if m.focusedField == focusProtoList {
				if item, ok := m.protoList.SelectedItem().(protoItem); ok {
					if item.auto {
						m.link.SetAuto()
					} else {
						m.link.ForceProtocol(item.proto)
					}
				}
				m.focusedField = focusStatus
			}
			return m, nil
		}

		if m.focusedField == focusProtoList {
			var cmd tea.Cmd
			m.protoList, cmd = m.protoList.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "up", "+", "=":
			if m.cmdState.AssistLevel < m.gears {
				m.cmdState.AssistLevel++
				m.link.SetCommandState(m.cmdState)
			}
		case "down", "-":
			if m.cmdState.AssistLevel > 0 {
				m.cmdState.AssistLevel--
				m.link.SetCommandState(m.cmdState)
			}
		case "l":
			m.cmdState.Headlight = !m.cmdState.Headlight
			m.link.SetCommandState(m.cmdState)
		case "w":
			m.cmdState.WalkAssist = !m.cmdState.WalkAssist
			m.link.SetCommandState(m.cmdState)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		now := time.Time(msg)
		m.status, m.online = m.link.Status(now)
		m.active, m.locked = m.link.Active()
		m.stats = m.link.Stats()
		return m, monitorTickCmd()
	}

	return m, nil
}

// errorName maps normalized motor error codes to display strings.
func errorName(code uint8) string {
	switch code {
	case motorstate.ErrCodeNone:
		return "none"
	case motorstate.ErrCodeBrakeCut:
		return "BRAKE CUT"
	case motorstate.ErrCodeOvervolt:
		return "OVERVOLTAGE"
	case motorstate.ErrCodeUndervolt:
		return "UNDERVOLTAGE"
	case motorstate.ErrCodeController:
		return "CONTROLLER FAULT"
	case motorstate.ErrCodeThrottle:
		return "THROTTLE FAULT"
	case motorstate.ErrCodeMotorHall:
		return "MOTOR HALL FAULT"
	default:
		return fmt.Sprintf("code 0x%02X", code)
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("LINKVIEW - MOTOR LINK MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to quit, tab for protocol list", m.connInfo)))
	s.WriteString("\n\n")

	// Link state line
	if m.locked {
		s.WriteString(valueStyle.Render(fmt.Sprintf("✓ Variant %s @ %d baud", m.active, motorlink.BitRateFor(m.active))))
	} else {
		s.WriteString(warningStyle.Render("⏳ Detecting wire variant..."))
	}
	if !m.online {
		s.WriteString(errorStyle.Render("   MOTOR OFFLINE"))
	}
	s.WriteString("\n\n")

	// Riding state
	rideContent := strings.Builder{}
	if m.online {
		rideContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Speed:"), valueStyle.Render(fmt.Sprintf("%.1f mph", float64(m.status.SpeedTenthsMph)/10)),
			labelStyle.Render("Battery:"), valueStyle.Render(fmt.Sprintf("%d%%", m.status.SOC)),
			labelStyle.Render("Voltage:"), valueStyle.Render(fmt.Sprintf("%.1f V", float64(m.status.VoltageTenths)/10)),
		))
		rideContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Current:"), valueStyle.Render(fmt.Sprintf("%.1f A", float64(m.status.CurrentTenthsAmp)/10)),
			labelStyle.Render("Assist echo:"), valueStyle.Render(fmt.Sprintf("%d", m.status.AssistEcho)),
		))
		if m.status.ErrorCode != motorstate.ErrCodeNone {
			rideContent.WriteString(fmt.Sprintf("%s %s\n",
				labelStyle.Render("Motor error:"), errorStyle.Render(errorName(m.status.ErrorCode)),
			))
		}
	} else {
		rideContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Speed:"), headerStyle.Render("--.-"),
			labelStyle.Render("Battery:"), headerStyle.Render("--%"),
			labelStyle.Render("Voltage:"), headerStyle.Render("--.-"),
		))
	}
	s.WriteString(boxStyle.Render(rideContent.String()))
	s.WriteString("\n\n")

	// Command state
	cmdContent := fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Assist:"), valueStyle.Render(fmt.Sprintf("%d/%d", m.cmdState.AssistLevel, m.gears)),
		labelStyle.Render("Light:"), onOff(m.cmdState.Headlight, valueStyle, headerStyle),
		labelStyle.Render("Walk:"), onOff(m.cmdState.WalkAssist, warningStyle, headerStyle),
	)
	s.WriteString(boxStyle.Render(cmdContent))
	s.WriteString("\n\n")

	// Statistics line
	s.WriteString(headerStyle.Render(fmt.Sprintf("frames %d   checksum errors %d   timeouts %d   dropped events %d",
		m.stats.FramesCaptured, m.stats.ChecksumErrors, m.stats.Timeouts, m.stats.DroppedEvents)))
	s.WriteString("\n")

	if m.focusedField == focusProtoList {
		s.WriteString("\n")
		s.WriteString(m.protoList.View())
	}

	return s.String()
}

func onOff(v bool, on, off lipgloss.Style) string {
	if v {
		return on.Render("ON")
	}
	return off.Render("off")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	transport, closer, connInfo, err := OpenTransport(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	l := motorlink.NewLink(transport, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	p := tea.NewProgram(initialMonitorModel(l, connInfo, cfg.GearCount))
	_, err = p.Run()
	cancel()
	<-done
	return err
}
