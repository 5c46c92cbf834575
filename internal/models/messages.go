// internal/models/messages.go
package models

// Messages 面向用户的本地化文本。带 %s/%d 的字段是格式串。
type Messages struct {
	MissingCredential string
	InvalidCredential string
	// 幻灯片内嵌错误中使用，%s 为原始错误
	InvalidCredentialDetail string
	QuotaExceeded           string
	// %s 语言名称
	PlanFailed           string
	UnexpectedPlanFormat string
	StyleGuideFailed     string
	// %s 错误信息
	StyleGuideFallback string
	// %s 主题, %s 语言名称, %s 输出片段
	UnexpectedSlideFormat string

	SlideErrorHeading string
	// %s 主题, %s 语言名称
	SlideErrorHTML string
	// %s 主题, %s 语言名称, %s 错误
	SlideErrorSpeech string
	// %s 主题, %s 语言名称, %s 错误
	SlideErrorMarkdown string

	ErrorLabel    string
	EmptyHTML     string
	EmptySpeech   string
	EmptyMarkdown string

	IncompleteTitleSuffix string
	// %s 主题
	IncompleteHTML string
	// %s 主题
	IncompleteSpeech string
	// %s 主题
	IncompleteMarkdown string

	RegeneratingHTML     string
	RegeneratingSpeech   string
	RegeneratingMarkdown string
	// %s 主题
	RegenFailedHeading  string
	RegenFailedHint     string
	RegenFailedSpeech   string
	RegenFailedMarkdown string
	RegenNoOutput       string
	// %s 主题, %s 错误
	RegenFailed string

	ProgressStarting string
	// %d 序号, %s 主题
	ProgressGenerating string
	// %d 序号
	ProgressDone string
	// %s 错误
	DeckFailed string

	// %s 文件名
	ImageUploaded  string
	EmptyPlan      string
	StyleGuideBusy string
	SlideNotInPlan string
	DeckBusy       string
	NewSlideTopic  string // %d 页码

	// %d 序号, %s 标题
	SpeechNotesHeading string
}

var catalogs = map[Language]*Messages{
	LanguageEnglish: {
		MissingCredential:       "An API key is required. Please enter your Gemini API key.",
		InvalidCredential:       "The Gemini API key is not valid. Please enter a valid API key.",
		InvalidCredentialDetail: "The Gemini API key is not valid. Please check your key. (%s)",
		QuotaExceeded:           "The Gemini API quota has been exceeded.",
		PlanFailed:              "Failed to generate the %s presentation plan.",
		UnexpectedPlanFormat:    "The model returned the %s presentation plan in an unexpected format.",
		StyleGuideFailed:        "Failed to generate a design style guide from the image.",
		StyleGuideFallback:      "Could not generate a design style guide from the image: %s. Slides will be generated with the default style.",
		UnexpectedSlideFormat:   "The model returned slide content for \"%s\" (%s) in an unexpected format. Output: %s",

		SlideErrorHeading:  "Slide generation error",
		SlideErrorHTML:     "Could not generate HTML content for \"%s\" (%s).",
		SlideErrorSpeech:   "### Error\nCould not generate speech notes for \"%s\" (%s).\n%s",
		SlideErrorMarkdown: "# Error: %s\nCould not generate markdown content for this slide (%s).\n%s",

		ErrorLabel:    "Error:",
		EmptyHTML:     "The generated HTML content for this slide is empty or invalid. Try regenerating it or check the plan item.",
		EmptySpeech:   "Error: the generated speech notes for this slide are empty or invalid. Please try again.",
		EmptyMarkdown: "# Error: missing content\n\nThe generated PPTX markdown for this slide is empty or invalid. Please try again.",

		IncompleteTitleSuffix: " (generation error)",
		IncompleteHTML:        "Failed to generate content for slide \"%s\". The generation process did not complete as expected.",
		IncompleteSpeech:      "Error: failed to generate speech notes for \"%s\".",
		IncompleteMarkdown:    "# Error: %s generation failed\n\nThe content could not be generated.",

		RegeneratingHTML:     "Regenerating slide content...",
		RegeneratingSpeech:   "Regenerating speech notes...",
		RegeneratingMarkdown: "Regenerating PPTX markdown...",
		RegenFailedHeading:   "Regeneration of \"%s\" failed",
		RegenFailedHint:      "You can regenerate again or adjust the plan item.",
		RegenFailedSpeech:    "\n\nError: regeneration failed.",
		RegenFailedMarkdown:  "\n\n# Regeneration failed",
		RegenNoOutput:        "The service did not produce a complete slide output during regeneration.",
		RegenFailed:          "Failed to regenerate the slide \"%s\". %s",

		ProgressStarting:   "Starting slide content generation...",
		ProgressGenerating: "Generating slide %d content: %s...",
		ProgressDone:       "Slide %d done",
		DeckFailed:         "Failed to generate the presentation. %s",

		ImageUploaded:  "The user uploaded the image \"%s\". It can serve as overall context or inspiration for the presentation, and a design style guide is generated from it automatically.",
		EmptyPlan:      "The presentation plan is empty. Generate or define a plan first.",
		StyleGuideBusy: "The image style guide is still being generated. Please try again shortly.",
		SlideNotInPlan: "The slide to regenerate was not found in the plan.",
		DeckBusy:       "Another generation is already running for this presentation.",
		NewSlideTopic:  "New slide topic %d",

		SpeechNotesHeading: "Speech notes (slide %d: %s)",
	},
	LanguageKorean: {
		MissingCredential:       "API 키가 필요합니다. Gemini API 키를 입력해주세요.",
		InvalidCredential:       "Gemini API 키가 유효하지 않습니다. 올바른 API 키를 입력해주세요.",
		InvalidCredentialDetail: "Gemini API 키가 유효하지 않습니다. API 키를 확인해주세요. (%s)",
		QuotaExceeded:           "Gemini API 할당량이 초과되었습니다.",
		PlanFailed:              "%s 프레젠테이션 계획 생성에 실패했습니다.",
		UnexpectedPlanFormat:    "LLM이 %s에 대한 프레젠테이션 계획을 예기치 않은 형식으로 반환했습니다.",
		StyleGuideFailed:        "이미지에서 디자인 스타일 가이드 생성에 실패했습니다.",
		StyleGuideFallback:      "이미지에서 디자인 스타일 가이드를 생성하지 못했습니다: %s. 기본 슬라이드 생성이 진행됩니다.",
		UnexpectedSlideFormat:   "LLM이 \"%s\" 주제(%s)에 대한 개별 슬라이드 콘텐츠를 예기치 않은 형식으로 반환했습니다. 출력: %s",

		SlideErrorHeading:  "슬라이드 생성 오류",
		SlideErrorHTML:     "\"%s\" (%s)에 대한 HTML 콘텐츠를 생성할 수 없습니다.",
		SlideErrorSpeech:   "### 오류\n\"%s\" (%s)에 대한 연설문을 생성할 수 없습니다.\n%s",
		SlideErrorMarkdown: "# 오류: %s\n이 슬라이드에 대한 마크다운 콘텐츠를 생성할 수 없습니다 (%s).\n%s",

		ErrorLabel:    "오류:",
		EmptyHTML:     "이 슬라이드의 생성된 HTML 콘텐츠가 비어 있거나 유효하지 않습니다. 재생성을 시도하거나 계획 항목을 확인하십시오.",
		EmptySpeech:   "오류: 이 슬라이드의 생성된 연설문이 비어 있거나 유효하지 않습니다. 다시 시도해주십시오.",
		EmptyMarkdown: "# 오류: 콘텐츠 누락\n\n이 슬라이드의 생성된 PPTX 마크다운이 비어 있거나 유효하지 않습니다. 다시 시도해주십시오.",

		IncompleteTitleSuffix: " (생성 오류)",
		IncompleteHTML:        "\"%s\" 슬라이드 콘텐츠 생성에 실패했습니다. 생성 프로세스가 예상대로 완료되지 않았습니다.",
		IncompleteSpeech:      "오류: \"%s\"에 대한 연설문 생성에 실패했습니다.",
		IncompleteMarkdown:    "# 오류: %s 생성 실패\n\n콘텐츠를 생성할 수 없습니다.",

		RegeneratingHTML:     "슬라이드 콘텐츠 재생성 중...",
		RegeneratingSpeech:   "연설문 재생성 중...",
		RegeneratingMarkdown: "PPTX 마크다운 재생성 중...",
		RegenFailedHeading:   "\"%s\" 재생성 실패",
		RegenFailedHint:      "다시 재생성하거나 계획 항목을 조정할 수 있습니다.",
		RegenFailedSpeech:    "\n\n오류: 재생성 실패.",
		RegenFailedMarkdown:  "\n\n# 재생성 실패",
		RegenNoOutput:        "재생성 시 서비스에서 완전한 슬라이드 출력을 생성하지 못했습니다.",
		RegenFailed:          "\"%s\" 슬라이드 재생성에 실패했습니다. %s",

		ProgressStarting:   "슬라이드 콘텐츠 생성 시작 중...",
		ProgressGenerating: "슬라이드 %d 콘텐츠 생성 중: %s...",
		ProgressDone:       "슬라이드 %d 완료",
		DeckFailed:         "프레젠테이션 생성에 실패했습니다. %s",

		ImageUploaded:  "사용자가 \"%s\" 이미지를 업로드했습니다. 이 이미지는 프레젠테이션의 전반적인 컨텍스트 또는 영감으로 사용될 수 있으며, 이를 기반으로 디자인 스타일 가이드가 자동 생성됩니다.",
		EmptyPlan:      "프레젠테이션 계획이 비어 있습니다. 먼저 계획을 생성하거나 정의하십시오.",
		StyleGuideBusy: "이미지 스타일 가이드가 아직 생성 중입니다. 잠시 후 다시 시도해주세요.",
		SlideNotInPlan: "재생성할 슬라이드를 계획에서 찾을 수 없습니다.",
		DeckBusy:       "이 프레젠테이션에 대해 이미 다른 생성 작업이 진행 중입니다.",
		NewSlideTopic:  "새 슬라이드 주제 %d",

		SpeechNotesHeading: "연설문 (슬라이드 %d: %s)",
	},
	LanguageChinese: {
		MissingCredential:       "需要 API 密钥，请输入您的 Gemini API 密钥。",
		InvalidCredential:       "Gemini API 密钥无效，请输入有效的 API 密钥。",
		InvalidCredentialDetail: "Gemini API 密钥无效，请检查您的密钥。(%s)",
		QuotaExceeded:           "Gemini API 配额已用尽。",
		PlanFailed:              "生成%s演示计划失败。",
		UnexpectedPlanFormat:    "模型以意外的格式返回了%s演示计划。",
		StyleGuideFailed:        "无法从图片生成设计风格指南。",
		StyleGuideFallback:      "无法从图片生成设计风格指南: %s。将使用默认样式生成幻灯片。",
		UnexpectedSlideFormat:   "模型以意外的格式返回了\"%s\"（%s）的幻灯片内容。输出: %s",

		SlideErrorHeading:  "幻灯片生成错误",
		SlideErrorHTML:     "无法为\"%s\"（%s）生成 HTML 内容。",
		SlideErrorSpeech:   "### 错误\n无法为\"%s\"（%s）生成演讲稿。\n%s",
		SlideErrorMarkdown: "# 错误: %s\n无法为此幻灯片生成 Markdown 内容（%s）。\n%s",

		ErrorLabel:    "错误:",
		EmptyHTML:     "此幻灯片生成的 HTML 内容为空或无效。请尝试重新生成或检查计划条目。",
		EmptySpeech:   "错误: 此幻灯片生成的演讲稿为空或无效，请重试。",
		EmptyMarkdown: "# 错误: 内容缺失\n\n此幻灯片生成的 PPTX Markdown 为空或无效，请重试。",

		IncompleteTitleSuffix: "（生成错误）",
		IncompleteHTML:        "幻灯片\"%s\"内容生成失败，生成过程未按预期完成。",
		IncompleteSpeech:      "错误: \"%s\"的演讲稿生成失败。",
		IncompleteMarkdown:    "# 错误: %s 生成失败\n\n无法生成内容。",

		RegeneratingHTML:     "正在重新生成幻灯片内容...",
		RegeneratingSpeech:   "正在重新生成演讲稿...",
		RegeneratingMarkdown: "正在重新生成 PPTX Markdown...",
		RegenFailedHeading:   "\"%s\"重新生成失败",
		RegenFailedHint:      "您可以再次重新生成或调整计划条目。",
		RegenFailedSpeech:    "\n\n错误: 重新生成失败。",
		RegenFailedMarkdown:  "\n\n# 重新生成失败",
		RegenNoOutput:        "重新生成时服务未能产生完整的幻灯片输出。",
		RegenFailed:          "幻灯片\"%s\"重新生成失败。%s",

		ProgressStarting:   "正在开始生成幻灯片内容...",
		ProgressGenerating: "正在生成第 %d 张幻灯片: %s...",
		ProgressDone:       "第 %d 张幻灯片完成",
		DeckFailed:         "演示文稿生成失败。%s",

		ImageUploaded:  "用户上传了图片\"%s\"。该图片可作为演示的整体背景或灵感来源，系统会据此自动生成设计风格指南。",
		EmptyPlan:      "演示计划为空，请先生成或定义计划。",
		StyleGuideBusy: "图片风格指南仍在生成中，请稍后再试。",
		SlideNotInPlan: "在计划中找不到要重新生成的幻灯片。",
		DeckBusy:       "该演示文稿已有其他生成任务在进行中。",
		NewSlideTopic:  "新幻灯片主题 %d",

		SpeechNotesHeading: "演讲稿（第 %d 页：%s）",
	},
	LanguageJapanese: {
		MissingCredential:       "API キーが必要です。Gemini API キーを入力してください。",
		InvalidCredential:       "Gemini API キーが無効です。有効な API キーを入力してください。",
		InvalidCredentialDetail: "Gemini API キーが無効です。キーを確認してください。(%s)",
		QuotaExceeded:           "Gemini API の割り当てを超過しました。",
		PlanFailed:              "%s のプレゼンテーション計画の生成に失敗しました。",
		UnexpectedPlanFormat:    "モデルが %s のプレゼンテーション計画を予期しない形式で返しました。",
		StyleGuideFailed:        "画像からデザインスタイルガイドを生成できませんでした。",
		StyleGuideFallback:      "画像からデザインスタイルガイドを生成できませんでした: %s。既定のスタイルでスライドを生成します。",
		UnexpectedSlideFormat:   "モデルが「%s」(%s) のスライドコンテンツを予期しない形式で返しました。出力: %s",

		SlideErrorHeading:  "スライド生成エラー",
		SlideErrorHTML:     "「%s」(%s) の HTML コンテンツを生成できません。",
		SlideErrorSpeech:   "### エラー\n「%s」(%s) のスピーチ原稿を生成できません。\n%s",
		SlideErrorMarkdown: "# エラー: %s\nこのスライドの Markdown コンテンツを生成できません (%s)。\n%s",

		ErrorLabel:    "エラー:",
		EmptyHTML:     "このスライドの HTML コンテンツが空または無効です。再生成するか計画項目を確認してください。",
		EmptySpeech:   "エラー: このスライドのスピーチ原稿が空または無効です。もう一度お試しください。",
		EmptyMarkdown: "# エラー: コンテンツがありません\n\nこのスライドの PPTX Markdown が空または無効です。もう一度お試しください。",

		IncompleteTitleSuffix: " (生成エラー)",
		IncompleteHTML:        "スライド「%s」のコンテンツ生成に失敗しました。生成処理が想定どおりに完了しませんでした。",
		IncompleteSpeech:      "エラー: 「%s」のスピーチ原稿の生成に失敗しました。",
		IncompleteMarkdown:    "# エラー: %s の生成に失敗\n\nコンテンツを生成できませんでした。",

		RegeneratingHTML:     "スライドコンテンツを再生成しています...",
		RegeneratingSpeech:   "スピーチ原稿を再生成しています...",
		RegeneratingMarkdown: "PPTX Markdown を再生成しています...",
		RegenFailedHeading:   "「%s」の再生成に失敗しました",
		RegenFailedHint:      "もう一度再生成するか、計画項目を調整してください。",
		RegenFailedSpeech:    "\n\nエラー: 再生成に失敗しました。",
		RegenFailedMarkdown:  "\n\n# 再生成に失敗",
		RegenNoOutput:        "再生成中にサービスが完全なスライド出力を生成しませんでした。",
		RegenFailed:          "スライド「%s」の再生成に失敗しました。%s",

		ProgressStarting:   "スライドコンテンツの生成を開始しています...",
		ProgressGenerating: "スライド %d のコンテンツを生成中: %s...",
		ProgressDone:       "スライド %d 完了",
		DeckFailed:         "プレゼンテーションの生成に失敗しました。%s",

		ImageUploaded:  "ユーザーが画像「%s」をアップロードしました。この画像はプレゼンテーション全体のコンテキストやインスピレーションとして使用でき、これを基にデザインスタイルガイドが自動生成されます。",
		EmptyPlan:      "プレゼンテーション計画が空です。先に計画を生成または定義してください。",
		StyleGuideBusy: "画像スタイルガイドはまだ生成中です。しばらくしてからもう一度お試しください。",
		SlideNotInPlan: "再生成するスライドが計画に見つかりません。",
		DeckBusy:       "このプレゼンテーションでは別の生成処理が実行中です。",
		NewSlideTopic:  "新しいスライドのトピック %d",

		SpeechNotesHeading: "スピーチ原稿（スライド %d: %s）",
	},
}

// MessagesFor 返回语言对应的文本，未知语言使用英文
func MessagesFor(lang Language) *Messages {
	if m, ok := catalogs[lang]; ok {
		return m
	}
	return catalogs[LanguageEnglish]
}
