package prompts

import (
	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

// TemplateVersion identifies the default template in generation metadata
const TemplateVersion = "story-v1.2"

// DefaultTemplate returns the built-in Turkish story template
func DefaultTemplate() *Template {
	return &Template{
		Version: TemplateVersion,
		Base: "Sen çocuklar için güvenli, sıcak ve eğitici hikayeler yazan bir yazarsın. " +
			"{age} yaşındaki {childName} adlı çocuk için Türkçe bir hikaye yaz. " +
			"Ana karakter {childName} olsun. Hikaye {length} olsun. Tema: {theme}.",
		AgeModifiers: map[AgeBand]string{
			AgeBandPreschool: "Çok kısa ve basit cümleler kullan, tekrarlar ve ses taklitleriyle eğlenceli bir anlatım kur.",
			AgeBandEarly:     "Anlaşılır cümleler kullan, küçük bir sorun ve mutlu bir çözüm içeren bir olay örgüsü kur.",
			AgeBandMiddle:    "Daha zengin bir kelime dağarcığı kullan, karakterlerin duygularını ve merakını anlat.",
			AgeBandTeen:      "Olgun ama çocuklara uygun bir dil kullan, karakterin kendi kararlarıyla büyümesini anlat.",
		},
		ThemeDescriptions: map[llm.Theme]string{
			llm.ThemeAdventure:  "heyecanlı bir keşif yolculuğu ve cesaret",
			llm.ThemeFriendship: "arkadaşlık, paylaşma ve birbirine yardım etme",
			llm.ThemeNature:     "doğanın güzellikleri ve çevreyi koruma",
			llm.ThemeAnimals:    "sevimli hayvanlar ve onlara şefkat gösterme",
			llm.ThemeSpace:      "yıldızlar, gezegenler ve uzay keşfi",
			llm.ThemeMagic:      "sihirli ama korkutucu olmayan, neşeli bir dünya",
			llm.ThemeFamily:     "aile sevgisi ve birlikte geçirilen güzel anlar",
			llm.ThemeLearning:   "yeni bir şey öğrenmenin sevinci ve merak",
		},
		LengthSpecs: map[llm.Length]LengthSpec{
			llm.LengthShort: {
				WordCount:   150,
				Min:         100,
				Max:         200,
				Complexity:  "simple",
				Description: "kısa ve sade",
			},
			llm.LengthMedium: {
				WordCount:   300,
				Min:         250,
				Max:         350,
				Complexity:  "moderate",
				Description: "orta uzunlukta ve akıcı",
			},
			llm.LengthLong: {
				WordCount:   500,
				Min:         450,
				Max:         550,
				Complexity:  "rich",
				Description: "uzun ve ayrıntılı",
			},
		},
		SafetyInstructions: "GÜVENLİK KURALLARI:\n" +
			"- Şiddet, korku, kötü söz, yetişkin konuları, din ve siyaset içerme.\n" +
			"- Hikaye olumlu bir mesajla ve mutlu bir sonla bitsin.\n" +
			"- Diyaloglar için tırnak işareti kullan.\n" +
			"- Gerçek kişi, adres veya iletişim bilgisi kullanma.",
	}
}
