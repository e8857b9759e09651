package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/keyboard"
)

// mousePressure is reported for devices without pressure.
const mousePressure = 0.5

var keyNames = map[fyne.KeyName]string{
	fyne.KeyEscape:    keyboard.KeyEscape,
	fyne.KeyDelete:    keyboard.KeyDelete,
	fyne.KeyBackspace: keyboard.KeyBackspace,
	fyne.KeyLeft:      keyboard.KeyLeft,
	fyne.KeyRight:     keyboard.KeyRight,
	fyne.KeyUp:        keyboard.KeyUp,
	fyne.KeyDown:      keyboard.KeyDown,
}

func keyOf(name fyne.KeyName, mod fyne.KeyModifier) keyboard.Key {
	k := keyboard.Key{
		Name:  strings.ToLower(string(name)),
		Ctrl:  mod&fyne.KeyModifierControl != 0,
		Shift: mod&fyne.KeyModifierShift != 0,
		Alt:   mod&fyne.KeyModifierAlt != 0,
		Meta:  mod&fyne.KeyModifierSuper != 0,
	}
	if n, ok := keyNames[name]; ok {
		k.Name = n
	}
	return k
}

func buttonOf(b desktop.MouseButton) interaction.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return interaction.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return interaction.ButtonMiddle
	}
	return interaction.ButtonPrimary
}

func pointOf(p fyne.Position) geometry.Point {
	return geometry.Point{X: float64(p.X), Y: float64(p.Y)}
}

func pointerOf(p fyne.Position, b desktop.MouseButton, mod fyne.KeyModifier) interaction.PointerEvent {
	return interaction.PointerEvent{
		Point:    pointOf(p),
		Button:   buttonOf(b),
		Shift:    mod&fyne.KeyModifierShift != 0,
		Ctrl:     mod&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
		Alt:      mod&fyne.KeyModifierAlt != 0,
		Pressure: mousePressure,
	}
}

// modifierOf returns the modifier bit a modifier key sets, or 0.
func modifierOf(name fyne.KeyName) fyne.KeyModifier {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return fyne.KeyModifierShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return fyne.KeyModifierControl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return fyne.KeyModifierAlt
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return fyne.KeyModifierSuper
	}
	return 0
}
