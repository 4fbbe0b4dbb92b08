package validation

// Static fraud/consistency tables. These are business policy, maintained by
// hand; they are deliberately not configurable at runtime.

// disposableDomains rejects throwaway mailbox providers.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwawaymail.com": true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"getnada.com":       true,
	"sharklasers.com":   true,
	"maildrop.cc":       true,
	"dispostable.com":   true,
}

// domainTypos maps recognizable misspellings to the intended domain.
// A match rejects the submission but offers the correction.
var domainTypos = map[string]string{
	"gmial.com":    "gmail.com",
	"gmal.com":     "gmail.com",
	"gmai.com":     "gmail.com",
	"gamil.com":    "gmail.com",
	"gmail.co":     "gmail.com",
	"gmail.cm":     "gmail.com",
	"yaho.com":     "yahoo.com",
	"yahooo.com":   "yahoo.com",
	"yahoo.co":     "yahoo.com",
	"hotmial.com":  "hotmail.com",
	"hotmal.com":   "hotmail.com",
	"hotmail.co":   "hotmail.com",
	"outlok.com":   "outlook.com",
	"outloook.com": "outlook.com",
	"iclod.com":    "icloud.com",
	"icloud.co":    "icloud.com",
	"aoll.com":     "aol.com",
	"comcastt.net": "comcast.net",
}

// freeMailDomains are consumer mailbox providers. An email on any other
// (non-disposable) domain earns the work_email quality flag.
var freeMailDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"aol.com":        true,
	"icloud.com":     true,
	"live.com":       true,
	"msn.com":        true,
	"comcast.net":    true,
	"att.net":        true,
	"verizon.net":    true,
	"sbcglobal.net":  true,
	"bellsouth.net":  true,
	"protonmail.com": true,
	"proton.me":      true,
	"mail.com":       true,
	"ymail.com":      true,
	"me.com":         true,
}

// fakePhones are classic placeholder numbers submitted by bots and testers.
var fakePhones = map[string]bool{
	"1234567890": true,
	"0123456789": true,
	"9876543210": true,
	"0987654321": true,
	"1231231234": true,
	"5551234567": true,
	"8675309867": true,
}

// stateZipPrefixes is a coarse state -> 3-digit ZIP prefix table. It is
// sparse: states absent from the table skip the geo-consistency check.
var stateZipPrefixes = map[string][]string{
	"CA": {"900", "901", "902", "903", "904", "905", "906", "907", "908", "910", "911", "912", "913", "914", "915", "916", "917", "918", "919", "920", "921", "922", "923", "924", "925", "926", "927", "928", "930", "931", "932", "933", "934", "935", "936", "937", "939", "940", "941", "942", "943", "944", "945", "946", "947", "948", "949", "950", "951", "952", "953", "954", "955", "956", "957", "958", "959", "960", "961"},
	"TX": {"750", "751", "752", "753", "754", "755", "756", "757", "758", "759", "760", "761", "762", "763", "764", "765", "766", "767", "768", "769", "770", "771", "772", "773", "774", "775", "776", "777", "778", "779", "780", "781", "782", "783", "784", "785", "786", "787", "788", "789", "790", "791", "792", "793", "794", "795", "796", "797", "798", "799", "885"},
	"NY": {"100", "101", "102", "103", "104", "105", "106", "107", "108", "109", "110", "111", "112", "113", "114", "115", "116", "117", "118", "119", "120", "121", "122", "123", "124", "125", "126", "127", "128", "129", "130", "131", "132", "133", "134", "135", "136", "137", "138", "139", "140", "141", "142", "143", "144", "145", "146", "147", "148", "149"},
	"FL": {"320", "321", "322", "323", "324", "325", "326", "327", "328", "329", "330", "331", "332", "333", "334", "335", "336", "337", "338", "339", "341", "342", "344", "346", "347", "349"},
	"IL": {"600", "601", "602", "603", "604", "605", "606", "607", "608", "609", "610", "611", "612", "613", "614", "615", "616", "617", "618", "619", "620", "622", "623", "624", "625", "626", "627", "628", "629"},
	"PA": {"150", "151", "152", "153", "154", "155", "156", "157", "158", "159", "160", "161", "162", "163", "164", "165", "166", "167", "168", "169", "170", "171", "172", "173", "174", "175", "176", "177", "178", "179", "180", "181", "182", "183", "184", "185", "186", "187", "188", "189", "190", "191", "193", "194", "195", "196"},
	"AZ": {"850", "851", "852", "853", "855", "856", "857", "859", "860", "863", "864", "865"},
	"WA": {"980", "981", "982", "983", "984", "985", "986", "988", "989", "990", "991", "992", "993", "994"},
	"CO": {"800", "801", "802", "803", "804", "805", "806", "807", "808", "809", "810", "811", "812", "813", "814", "815", "816"},
	"GA": {"300", "301", "302", "303", "304", "305", "306", "307", "308", "309", "310", "311", "312", "313", "314", "315", "316", "317", "318", "319", "398", "399"},
}

// stateAreaCodes is a coarse state -> area code table used only for the
// local_phone quality flag, never for rejection.
var stateAreaCodes = map[string][]string{
	"CA": {"209", "213", "279", "310", "323", "341", "408", "415", "424", "442", "510", "530", "559", "562", "619", "626", "628", "650", "657", "661", "669", "707", "714", "747", "760", "805", "818", "820", "831", "840", "858", "909", "916", "925", "940", "949", "951"},
	"TX": {"210", "214", "254", "281", "325", "346", "361", "409", "430", "432", "469", "512", "682", "713", "726", "737", "806", "817", "830", "832", "903", "915", "936", "940", "945", "956", "972", "979"},
	"NY": {"212", "315", "332", "347", "516", "518", "585", "607", "631", "646", "680", "716", "718", "838", "845", "914", "917", "929", "934"},
	"FL": {"239", "305", "321", "352", "386", "407", "561", "689", "727", "754", "772", "786", "813", "850", "863", "904", "941", "954"},
	"IL": {"217", "224", "309", "312", "331", "447", "464", "618", "630", "708", "773", "779", "815", "847", "872"},
	"PA": {"215", "223", "267", "272", "412", "445", "484", "570", "610", "717", "724", "814", "878"},
	"AZ": {"480", "520", "602", "623", "928"},
	"WA": {"206", "253", "360", "425", "509", "564"},
	"CO": {"303", "719", "720", "970", "983"},
	"GA": {"229", "404", "470", "478", "678", "706", "762", "770", "912"},
}

// implausiblePairs lists budget/property-type combinations that are
// economically implausible and treated as fraud signals.
var implausiblePairs = map[string][]string{
	"over_15000":  {"rental", "apartment"},
	"10000_15000": {"apartment"},
}
