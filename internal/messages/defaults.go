package messages

import "github.com/kjstillabower/weather-outfit-service/internal/comfort"

// Default returns a fresh copy of the built-in banks.
func Default() *Banks {
	return &Banks{
		Outfit: map[comfort.Band][]string{
			comfort.VeryCold: {
				"패딩에 목도리, 장갑까지 챙기세요.\n히트텍 같은 보온 이너를 꼭 입어요.",
				"롱패딩이 필요한 날이에요.\n귀마개나 비니로 머리까지 따뜻하게.",
				"두꺼운 니트 위에 헤비 아우터를 걸치세요.\n기모 바지를 추천해요.",
			},
			comfort.Cold: {
				"코트나 숏패딩에 니트를 레이어드해요.\n목도리를 챙기면 좋아요.",
				"울 코트와 두꺼운 니트 조합을 추천해요.",
				"기모 맨투맨 위에 두툼한 아우터를 입어요.",
			},
			comfort.Cool: {
				"트렌치코트나 가죽 자켓이 잘 어울려요.\n얇은 니트를 안에 받쳐 입어요.",
				"가디건이나 자켓 하나는 꼭 챙기세요.",
				"맨투맨에 바람막이를 걸치면 딱이에요.",
			},
			comfort.Mild: {
				"얇은 가디건이나 셔츠를 걸치기 좋은 날이에요.",
				"긴팔 티셔츠에 면바지로 가볍게.",
				"아침저녁 대비 얇은 겉옷 하나 챙겨요.",
			},
			comfort.Warm: {
				"반팔 위에 얇은 셔츠를 걸쳐요.",
				"면 소재 긴팔이나 반팔이 좋아요.",
				"가벼운 린넨 셔츠를 추천해요.",
			},
			comfort.Hot: {
				"반팔과 반바지로 시원하게 입어요.",
				"통풍이 잘 되는 린넨 소재를 골라요.",
				"얇고 밝은 색 옷으로 열을 피하세요.",
			},
			comfort.VeryHot: {
				"민소매나 얇은 반팔을 추천해요.\n모자와 선크림을 꼭 챙기세요.",
				"땀 흡수가 잘 되는 기능성 소재를 입어요.\n수분 보충을 잊지 마세요.",
				"가장 가벼운 옷차림으로 외출해요.\n한낮 야외 활동은 피하세요.",
			},
		},
		Tip: map[comfort.TipCategory][]string{
			comfort.TipWindy: {
				"바람이 강해요. 모자보다는 후드를 추천해요.",
				"바람이 세서 체감온도가 낮아요. 바람막이를 챙기세요.",
			},
			comfort.TipHumidHot: {
				"습하고 더워요. 땀이 잘 마르는 옷을 입어요.",
				"후텁지근한 날이에요. 여벌 티셔츠가 있으면 좋아요.",
			},
			comfort.TipDry: {
				"공기가 건조해요. 보습제와 립밤을 챙기세요.",
				"건조한 날이에요. 물을 자주 마셔요.",
			},
			comfort.TipNice: {
				"외출하기 좋은 날씨예요.",
				"가볍게 산책하기 좋은 날이에요.",
			},
		},
		Tomorrow: map[comfort.TomorrowCategory][]string{
			comfort.TomorrowMuchColder: {
				"내일은 오늘보다 꽤 더 추워요. 한 단계 두꺼운 아우터와 목 보온을 추천해요.",
			},
			comfort.TomorrowColder: {
				"내일은 오늘보다 더 추워요. 오늘보다 조금 더 따뜻한 겉옷을 준비해보세요.",
			},
			comfort.TomorrowSimilar: {
				"내일은 오늘과 비슷한 체감이에요. 실내외 온도차만 조심해요.",
			},
			comfort.TomorrowWarmer: {
				"내일은 오늘보다 조금 더 따뜻해요. 겉옷은 가볍게 조절해도 좋아요.",
			},
			comfort.TomorrowMuchWarmer: {
				"내일은 오늘보다 꽤 더 따뜻해요. 이너를 가볍게 하거나 겉옷은 얇게 추천해요.",
			},
		},
	}
}
