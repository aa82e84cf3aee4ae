package service

import (
	"fmt"
	"strings"

	"emotion-diary/internal/domain"
)

// PromptBuilder arma la instruccion enviada al modelo para una variante.
// La salida es deterministica para el mismo texto y paleta.
type PromptBuilder struct {
	Variant domain.Variant
}

// Build arma el prompt. La paleta solo se usa en las variantes que la necesitan.
func (b PromptBuilder) Build(text string, palette *domain.Palette) string {
	p := domain.DefaultPalette()
	if palette != nil {
		p = *palette
	}

	var sb strings.Builder
	switch b.Variant {
	case domain.VariantCoordinate:
		writeCoordinatePrompt(&sb, p)
	case domain.VariantLevel:
		writeLevelPrompt(&sb, p)
	case domain.VariantTraits:
		writeTraitPrompt(&sb)
	default:
		writeColorPrompt(&sb)
	}

	sb.WriteString("入力:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n出力:\n")
	return sb.String()
}

func writeCoordinatePrompt(sb *strings.Builder, p domain.Palette) {
	sb.WriteString("あなたは感情心理学と配色設計の専門家です。\n")
	sb.WriteString("次の日本語テキストを読み取り、感情を 2 軸 (x, y) で評価し、\n")
	sb.WriteString("**必ず 1 行のみ** 下記フォーマットで出力してください。\n\n")

	sb.WriteString("フォーマット:\n")
	sb.WriteString("x={整数},y={整数},color=#RRGGBB\n\n")

	sb.WriteString(fmt.Sprintf("座標定義 (整数 %d〜+%d):\n", domain.CoordinateMin, domain.CoordinateMax))
	sb.WriteString("・x 軸  -10 = 強い不快感   +10 = 強い快感\n")
	sb.WriteString("・y 軸  -10 = 沈静（リラックス） +10 = 覚醒（高い活力）\n\n")

	writePaletteConstants(sb, p)

	sb.WriteString("**色選定ルール**\n")
	sb.WriteString("1. color には上記 4 色のうち **最多でも 2 色** を線形ブレンドして RGB 6 桁で出力する。\n")
	sb.WriteString("   - ブレンド比率は |x| : |y| に比例して決めること。\n")
	sb.WriteString("     例) x=8, y=2 → 快方向 80%, 覚醒方向 20%\n")
	sb.WriteString(fmt.Sprintf("2. |x| >= %d または |y| >= %d の場合は、優勢な軸の象限の色を 1 色だけ使う。\n",
		DominantAxisThreshold, DominantAxisThreshold))
	sb.WriteString(fmt.Sprintf("3. ブレンド候補の 2 色の色差 ΔE が %.0f 未満なら、より離れた別の組み合わせを使う。\n", MinBlendDeltaE))
	writeNearPairs(sb, p)
	sb.WriteString("4. 余計な説明・改行・コードブロックは一切含めない。\n\n")
}

func writeLevelPrompt(sb *strings.Builder, p domain.Palette) {
	sb.WriteString("あなたは感情心理学と配色設計の専門家です。\n")
	sb.WriteString("次の日本語テキストを読み取り、気分を 4 段階のレベルで評価し、\n")
	sb.WriteString("下記フォーマットの **2 行のみ** を出力してください。\n\n")

	sb.WriteString("フォーマット:\n")
	sb.WriteString("level: {整数}\n")
	sb.WriteString("color: #RRGGBB\n\n")

	sb.WriteString(fmt.Sprintf("レベル定義 (整数 %d〜%d):\n", domain.LevelMin, domain.LevelMax))
	sb.WriteString("・1 = 落ち込んでいる (DARK)\n")
	sb.WriteString("・2 = 穏やか (CALM)\n")
	sb.WriteString("・3 = 活発だが落ち着かない (ENERGETIC)\n")
	sb.WriteString("・4 = 明るく前向き (BRIGHT)\n\n")

	writePaletteConstants(sb, p)

	sb.WriteString("**色選定ルール**\n")
	sb.WriteString("1. color にはレベルに対応する色を基本とし、**最多でも 2 色** をブレンドしてよい。\n")
	sb.WriteString(fmt.Sprintf("2. ブレンドする 2 色の色差 ΔE が %.0f 未満なら、1 色だけを使う。\n", MinBlendDeltaE))
	writeNearPairs(sb, p)
	sb.WriteString("3. 余計な説明・コードブロックは一切含めない。\n\n")
}

func writeTraitPrompt(sb *strings.Builder) {
	sb.WriteString("あなたは感情心理学と配色設計の専門家です。\n")
	sb.WriteString("以下の日本語テキストを読み取り、作者の心情を次のフォーマットで **厳密に 1 行** 出力してください。\n\n")

	sb.WriteString("フォーマット:\n")
	sb.WriteString("fun={整数},bright={整数},energy={整数},color=#RRGGBB\n\n")

	sb.WriteString(fmt.Sprintf("評価軸 (整数 %d〜%d):\n", domain.TraitMin, domain.TraitMax))
	sb.WriteString("・fun    : つまらない = 0, 楽しい = 10\n")
	sb.WriteString("・bright : 暗い       = 0, 明るい = 10\n")
	sb.WriteString("・energy : 元気がない = 0, とても元気 = 10\n\n")

	sb.WriteString("余計な説明や注釈、改行、コードブロックは一切含めないでください。\n\n")
}

func writeColorPrompt(sb *strings.Builder) {
	sb.WriteString("以下の日本語テキストを読み取り、テキストの内容に最もふさわしい単一のカラーコードを ")
	sb.WriteString("#RRGGBB 形式で**厳密に**出力してください。\n")
	sb.WriteString("余計な説明や注釈、改行、コードブロックは一切含めないでください。\n\n")
}

func writePaletteConstants(sb *strings.Builder, p domain.Palette) {
	sb.WriteString("利用可能パレット:\n")
	sb.WriteString(fmt.Sprintf("BRIGHT     = %s   # 快 + 高覚醒\n", p.Bright))
	sb.WriteString(fmt.Sprintf("ENERGETIC  = %s   # 不快 + 高覚醒\n", p.Energetic))
	sb.WriteString(fmt.Sprintf("DARK       = %s   # 不快 + 沈静\n", p.Dark))
	sb.WriteString(fmt.Sprintf("CALM       = %s   # 快 + 沈静\n\n", p.Calm))
}

func writeNearPairs(sb *strings.Builder, p domain.Palette) {
	pairs := NearPairs(p, MinBlendDeltaE)
	if len(pairs) == 0 {
		return
	}
	sb.WriteString("   色差が小さくブレンドに使えない組み合わせ:\n")
	for _, pair := range pairs {
		sb.WriteString(fmt.Sprintf("   - %s + %s (ΔE=%.1f)\n",
			strings.ToUpper(pair.RoleA), strings.ToUpper(pair.RoleB), pair.DeltaE))
	}
}
