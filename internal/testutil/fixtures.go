// Package testutil holds story fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"strings"
)

// StoryContent is a 101-word Turkish adventure story that passes every check
const StoryContent = `Ahmet ve köpeği Pamuk bir sabah ormana doğru yola çıktı. ` +
	`Güneş parlıyordu ve kuşlar neşeyle şarkı söylüyordu. ` +
	`Yolda yaşlı bir kaplumbağa ile karşılaştılar. ` +
	`Kaplumbağa gülümseyerek onlara eski bir haritadan bahsetti. ` +
	`"Bu harita sizi gizli bir şelaleye götürecek," dedi. ` +
	`Ahmet çok heyecanlandı ve haritayı dikkatle inceledi. ` +
	`Birlikte tepeleri aştılar, küçük bir dereden atladılar ve renkli çiçeklerle dolu bir çayıra ulaştılar. ` +
	`Pamuk kelebeklerin peşinden koşarken Ahmet ağaçların arasında parıldayan suyu fark etti. ` +
	`Şelale gerçekten çok güzeldi. ` +
	`İkisi de serin suda oynadılar ve yeni arkadaşlarına teşekkür etmek için kaplumbağanın yanına döndüler. ` +
	`O gün Ahmet, meraklı olmanın ve arkadaşlarla paylaşmanın ne kadar değerli olduğunu öğrendi.`

// StoryWordCount is the whitespace word count of StoryContent
const StoryWordCount = 101

// LongStoryContent is a 502-word Turkish story in which the heroine and a few
// nouns recur the way they do in real long stories. It contains words with the
// dotless ı such as "akıllı", "ılık" and "kırmızı".
const LongStoryContent = `Elif, küçük bir kasabada annesi ve babasıyla birlikte yaşayan meraklı bir kızdı. Her sabah penceresini açar, bahçedeki elma ağacına konan serçeleri selamlardı. Bir gün ağacın dibinde parlak, yuvarlak bir taş buldu. Taşın üzerinde minik yıldızlar çizilmişti.
"Bu taş nereden geldi acaba?" diye sordu Elif kendi kendine.
O sırada çitin üzerinden turuncu tüylü bir kedi atladı. Kedinin adı Tarçın'dı ve komşuları Ayşe Teyze'nin en sevdiği dostuydu. Tarçın taşı koklayınca kuyruğunu salladı, sonra tepeye giden patikaya doğru yürümeye başladı. Elif de taşı cebine koyup onun peşinden gitti.
Patika, rengârenk çiçeklerle süslenmiş geniş bir çayıra açılıyordu. Arılar vızıldıyor, kelebekler güneşin altında dans ediyordu. Çayırın ortasında eski, ahşap bir değirmen duruyordu. Değirmenin kanatları rüzgârla yavaşça dönüyor, tatlı bir gıcırtı çıkarıyordu.
Değirmenin kapısında gözlüklü, beyaz sakallı bir dede oturuyordu. Dede gülümseyerek Elif'e el salladı.
"Merhaba küçük gezgin," dedi. "Görüyorum ki yıldızlı taşı bulmuşsun."
Elif şaşırdı. "Bu taşı tanıyor musunuz?" diye sordu.
Dede başını salladı. Anlattığına göre taş, kasabanın çocukları için yıllar önce yapılmış bir oyunun parçasıydı. Çayırın dört köşesine saklanmış dört taş vardı ve hepsi bir araya gelince değirmenin içindeki küçük müzik kutusu çalmaya başlardı. Ama taşlar zamanla kaybolmuş, kutu da uzun zamandır sessizdi.
Elif'in gözleri parladı. "Diğer taşları birlikte bulabilir miyiz?" dedi heyecanla.
Tarçın miyavlayarak ilk yolu gösterdi. Çayırın kuzeyindeki derenin kenarında, yosunlu bir kayanın altında ikinci taşı buldular. Bu taşın üzerinde küçük bir ay resmi vardı. Elif taşı dikkatlice suyla yıkadı ve cebine koydu.
Üçüncü taş için tepenin yamacındaki yaşlı çınar ağacına tırmanmaları gerekiyordu. Elif önce biraz tereddüt etti, çünkü dallar oldukça yüksekti. Dede ona sabırla nasıl güvenle tırmanacağını anlattı. Elif yavaş yavaş, her adımını düşünerek ilerledi ve bir kuş yuvasının yanında güneş resimli taşı buldu. Yuvadaki yavru kuşları ürkütmemek için sessizce aşağı indi.
Dördüncü taşı bulmak en zoruydu. Akşam yaklaşıyor, gökyüzü pembe ve mor renklere bürünüyordu. Elif, Tarçın ve dede çayırın her köşesine baktılar ama taşı göremediler. Elif yorulmuştu ve neredeyse vazgeçecekti. Sonra Tarçın'ın bir tavşan deliğinin başında beklediğini fark etti. Deliğin ağzında, yaprakların arasında bulut resimli son taş duruyordu.
"Başardık!" diye bağırdı Elif sevinçle.
Hep birlikte değirmene döndüler. Dede, tozlu rafın üzerindeki küçük kutuyu indirdi. Kutunun kapağında dört yuvarlak oyuk vardı. Elif taşları tek tek yerleştirdi: yıldız, ay, güneş ve bulut. Son taş yerine oturunca kutudan yumuşak, neşeli bir melodi yükseldi. Değirmenin kanatları bile sanki müziğe eşlik ediyordu.
Melodiyi duyan kasabalılar tek tek çayıra geldiler. Ayşe Teyze sıcak ıhlamur getirdi, çocuklar çimenlerin üzerinde el ele verip halay çektiler. Elif'in annesi ve babası da gelmişti. Kızlarına sarılıp onunla gurur duyduklarını söylediler.
O gece Elif yatağına uzandığında pencereden yıldızlara baktı. Sabırlı olmanın, dostlarla yardımlaşmanın ve vazgeçmemenin ne kadar güzel sonuçlar verdiğini düşündü. Tarçın da ayak ucunda kıvrılmış, mutlu mutlu mırıldanıyordu. Ertesi gün yeni bir macera onları bekliyordu, ama şimdilik uyku vaktiydi.
Sabah olunca Elif kahvaltıdan sonra değirmene koştu. Dede ona küçük bir defter hediye etti. Defterin ilk sayfasına, bulduğu taşların resimlerini özenle çizdi. Altına da kocaman harflerle şunu yazdı: "Arkadaşlarla her şey daha güzel." Akıllı kedi Tarçın ise ılık güneşin altında kırmızı bir yastığın üzerinde uyukluyordu. Kasabada o günden sonra herkes müzik kutusunun hikâyesini anlattı.`

// StoryTitle is a title accepted by the schema check
const StoryTitle = "Ahmet ve Gizli Şelale"

// Story returns a schema-conformant story object
func Story() map[string]any {
	return map[string]any{
		"title":     StoryTitle,
		"content":   StoryContent,
		"wordCount": StoryWordCount,
		"theme":     "adventure",
		"language":  "tr",
	}
}

// StoryJSON encodes Story after applying overrides; a nil override value removes the field
func StoryJSON(overrides map[string]any) string {
	story := Story()
	for k, v := range overrides {
		if v == nil {
			delete(story, k)
			continue
		}
		story[k] = v
	}
	data, err := json.Marshal(story)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Words builds a text of n words made of short Turkish words, ending a sentence every eight words
func Words(n int) string {
	vocabulary := []string{"Ali", "ve", "Ayşe", "bir", "gün", "parka", "gitti", "çok"}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(vocabulary[i%len(vocabulary)])
		if i%8 == 7 || i == n-1 {
			sb.WriteString(".")
		}
	}
	return sb.String()
}
