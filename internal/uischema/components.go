package uischema

func badge(tone Tone, text string) Component {
	return Component{
		Type:       ComponentSummaryBadge,
		Title:      "Summary",
		Priority:   0,
		Visibility: VisibilityVisible,
		Data: map[string]any{
			"tone": string(tone),
			"text": text,
		},
	}
}

func card(t ComponentType, title string, priority int, text string) Component {
	return Component{
		Type:       t,
		Title:      title,
		Priority:   priority,
		Visibility: VisibilityVisible,
		Data:       map[string]any{"text": text},
	}
}

// rawReport is collapsed by default; it repeats the cards as plain text.
func rawReport(text string) Component {
	return Component{
		Type:       ComponentRawReport,
		Title:      "Raw Report",
		Priority:   40,
		Visibility: VisibilityCollapsed,
		Data:       map[string]any{"text": text},
	}
}
