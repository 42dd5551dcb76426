package scene

// SampleScene returns the demo presentation new projects open with.
func SampleScene() *Scene {
	return &Scene{
		Version:      CurrentVersion,
		GlobalConfig: DefaultAnimationConfig(),
		MinDuration:  DefaultMinDuration,
		ContentBlocks: []ContentBlock{
			{
				ID:   "1",
				Type: Paragraph,
				Content: ParagraphContent{
					Text: "Lorem ipsum dolor sit amet consectetur. Vitae pharetra sem feugiat viverra quis id. " +
						"Vel sit id at et ullamcorper neque enim. Est sit lacus quisque faucibus nec elementum sed lobortis.",
				},
				StartTime: 0,
				Duration:  3000,
			},
			{
				ID:   "2",
				Type: BulletList,
				Content: BulletListContent{
					Title: "Skills to learn",
					Items: []BulletItem{
						{Bold: "Video Editing", Desc: "For quickly creating shareable content."},
						{Bold: "Storyboarding and Concepting", Desc: "For product design, branding, and pitches."},
						{Bold: "AI Ethics and Responsible AI", Desc: "Increasingly essential as companies face regulation and reputation risk."},
					},
				},
				StartTime: 4000,
				Duration:  4000,
				Animation: Overrides{
					CharFadeDelay:    Int64(0),
					MaskFadeDelay:    Int64(200),
					MaskFadeDuration: Int64(400),
					Curve:            String("cubic-bezier(0.00,0.00,0.00,1.00)"),
				},
			},
			{
				ID:        "3",
				Type:      Chart,
				Content:   DefaultContent(Chart),
				StartTime: 8000,
				Duration:  2000,
			},
		},
	}
}
