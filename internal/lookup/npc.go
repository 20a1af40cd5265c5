// internal/lookup/npc.go
package lookup

// npcCorps are the starter and faction corporations. A character in one of
// them is judged by the last player corporation they were in.
var npcCorps = toSet(
	"24th Imperial Crusade",
	"Academy of Aggressive Behaviour",
	"Aliastra",
	"Allotek Industries",
	"Amarr Certified News",
	"Amarr Civil Service",
	"Amarr Constructions",
	"Amarr Navy",
	"Amarr Trade Registry",
	"Ammatar Consulate",
	"Ammatar Fleet",
	"Anonymous",
	"Archangels",
	"Ardishapur Family",
	"Astral Mining Inc.",
	"Bank of Luminaire",
	"Blood Raiders",
	"Boundless Creation",
	"Brutor tribe",
	"Caldari Business Tribunal",
	"Caldari Constructions",
	"Caldari Funds Unlimited",
	"Caldari Navy",
	"Caldari Provisions",
	"Caldari Steel",
	"Carthum Conglomerate",
	"CBD Corporation",
	"CBD Sell Division",
	"Center for Advanced Studies",
	"Chemal Tech",
	"Chief Executive Panel",
	"Civic Court",
	"Combined Harvest",
	"CONCORD",
	"Core Complexion Inc.",
	"Corporate Police Force",
	"Court Chamberlain",
	"CreoDron",
	"DED",
	"Deep Core Mining Inc.",
	"Defiants",
	"Dominations",
	"Ducia Foundry",
	"DUST 514 NPC Corporations",
	"Duvolle Laboratories",
	"Echelon Entertainment",
	"Egonics Inc.",
	"Eifyr and Co.",
	"Emperor Family",
	"Expert Distribution",
	"Expert Housing",
	"Federal Administration",
	"Federal Defence Union",
	"Federal Freight",
	"Federal Intelligence Office",
	"Federal Navy Academy",
	"Federation Customs",
	"Federation Navy",
	"FedMart",
	"Food Relief",
	"Freedom Extension",
	"Further Foodstuffs",
	"Garoun Investment Bank",
	"Genolution",
	"Guardian Angels",
	"Guristas",
	"Guristas Production",
	"Hedion University",
	"Home Guard",
	"House of Records",
	"Hyasyoda Corporation",
	"HZO Refinery",
	"Imperial Academy",
	"Imperial Armaments",
	"Imperial Chancellor",
	"Imperial Shipment",
	"Impetus",
	"Impro",
	"Inherent Implants",
	"Inner Circle",
	"Inner Zone Shipping",
	"Intaki Bank",
	"Intaki Commerce",
	"Intaki Space Police",
	"Intaki Syndicate",
	"InterBus",
	"Internal Security",
	"Ishukone Corporation",
	"Ishukone Watch",
	"Joint Harvesting",
	"Jove Navy",
	"Jovian Directorate",
	"Jovian directorate",
	"Kaalakiota Corporation",
	"Kador Family",
	"Khanid Innovation",
	"Khanid Transport",
	"Khanid Works",
	"Kor-Azor Family",
	"Krusual tribe",
	"Lai Dai Corporation",
	"Lai Dai Protection Service",
	"Material Acquisition",
	"Material Institute",
	"Mercantile Club",
	"Minedrill",
	"Ministry of Assessment",
	"Ministry of Internal Order",
	"Ministry of War",
	"Minmatar Mining Corporation",
	"Modern Finances",
	"Mordu's Legion",
	"Native Freshfood",
	"Nefantar Miner Association",
	"Noble Appliances",
	"NOH Recruitment Center",
	"Nugoeihuvi Corporation",
	"Nurtura",
	"Outer Ring Excavations",
	"Pator Tech School",
	"Peace and Order Unit",
	"Pend Insurance",
	"Perkone",
	"Poksu Mineral Group",
	"Poteque Pharmaceuticals",
	"President",
	"Prompt Delivery",
	"Propel Dynamics",
	"Prosper",
	"Quafe Company",
	"Rapid Assembly",
	"Republic Fleet",
	"Republic Justice Department",
	"Republic Military School",
	"Republic Parliament",
	"Republic Security Services",
	"Republic University",
	"Roden Shipyards",
	"Royal Amarr Institute",
	"Royal Khanid Navy",
	"Salvation Angels",
	"Sarum Family",
	"School of Applied Knowledge",
	"Science and Trade Institute",
	"Sebiestor tribe",
	"Secure Commerce Commission",
	"Senate",
	"Serpentis Corporation",
	"Serpentis Inquest",
	"Shapeset",
	"Sisters of EVE",
	"Six Kin Development",
	"Society of Conscious Thought",
	"Spacelane Patrol",
	"State and Region Bank",
	"State Protectorate",
	"State War Academy",
	"Sukuuvestaa Corporation",
	"Supreme Court",
	"Tash-Murkon Family",
	"The Draconis Family",
	"The Leisure Group",
	"The Sanctuary",
	"The Scope",
	"Theology Council",
	"Thukker Mix",
	"Top Down",
	"TransStellar Shipping",
	"Tribal Liberation Force",
	"True Creations",
	"True Power",
	"Trust Partners",
	"University of Caille",
	"Urban Management",
	"Vherokior tribe",
	"Viziam",
	"Wiyrkomi Corporation",
	"Wiyrkomi Peace Corps",
	"X-Sense",
	"Ytiri",
	"Zainou",
	"Zero-G Research Firm",
	"Zoar and Sons",
)

// IsNPCCorp reports whether name is an NPC corporation
func IsNPCCorp(name string) bool {
	return npcCorps[name]
}

func toSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
