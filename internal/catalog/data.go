package catalog

import (
	"fmt"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

const promptTemplate = "Extract every course or training programme listed on the page for the %s category. " +
	"For each one capture title, provider, description, level, duration, price, study mode, locations, " +
	"entry requirements, key topics and the link to apply or visit."

// batches is the process-wide catalog. Never mutated at runtime.
var batches = []Batch{
	{
		Number:   1,
		Name:     "Electrical Installation",
		Category: "electrical-installation",
		Sources: []string{
			"https://www.cityandguilds.com/qualifications-and-apprenticeships/building-services-industry/electrical-installation",
			"https://www.ncfe.org.uk/qualification-search/?q=electrical+installation",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "Level 2 Diploma in Electrical Installations",
				"provider":    "City & Guilds",
				"description": "Foundation qualification covering wiring systems, health and safety, and electrical science for new entrants to the trade.",
				"level":       "Level 2",
				"duration":    "1 year",
				"price":       "£2,400",
				"study_mode":  "Full-time",
				"visit_link":  "https://www.cityandguilds.com/qualifications-and-apprenticeships/building-services-industry/electrical-installation/2365-electrical-installations",
			},
			{
				"title":       "Level 3 Diploma in Electrical Installations",
				"provider":    "City & Guilds",
				"description": "Advanced installation theory and practice including design, inspection and fault diagnosis.",
				"level":       "Level 3",
				"duration":    "1-2 years",
				"price":       "£3,100",
				"study_mode":  "Full-time or day release",
			},
			{
				"title":       "Domestic Electrical Installer Course",
				"provider":    "Trade Skills 4U",
				"description": "Fast-track route into domestic electrical work covering Part P and building regulations.",
				"level":       "Intermediate",
				"duration":    "4 weeks",
				"price":       "£1,850",
			},
			{
				"title":       "18th Edition Wiring Regulations (BS 7671)",
				"provider":    "NICEIC Training",
				"description": "The current IET wiring regulations qualification required for all practising electricians.",
				"level":       "Level 3 Award",
				"duration":    "3 days",
				"price":       "£395",
				"study_mode":  "Classroom or online",
			},
			{
				"title":       "Electrotechnical Apprenticeship (Installation Electrician)",
				"provider":    "JTL",
				"description": "Employer-based apprenticeship leading to AM2 assessment and ECS Gold Card.",
				"level":       "Level 3",
				"duration":    "4 years",
				"price":       "Funded",
			},
		},
	},
	{
		Number:   2,
		Name:     "Inspection & Testing",
		Category: "inspection-testing",
		Sources: []string{
			"https://www.cityandguilds.com/qualifications-and-apprenticeships/building-services-industry/electrical-installation/2391-inspection-and-testing",
			"https://www.niceic.com/find-a-course",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "2391-52 Inspection, Testing and Certification",
				"provider":    "City & Guilds",
				"description": "Combined initial verification and periodic inspection qualification for electrical installations.",
				"level":       "Level 3",
				"duration":    "6 days",
				"price":       "£1,195",
			},
			{
				"title":       "Initial Verification Course (2391-50)",
				"provider":    "NICEIC Training",
				"description": "Initial verification of new electrical installations before they are put into service.",
				"level":       "Level 3",
				"duration":    "3 days",
				"price":       "£675",
			},
			{
				"title":       "Periodic Inspection and Condition Reporting",
				"provider":    "LCL Awards",
				"description": "EICR production for existing installations including classification codes and limitations.",
				"level":       "Level 3",
				"duration":    "3 days",
				"price":       "£650",
				"study_mode":  "Classroom",
			},
			{
				"title":       "PAT Testing Competency Course",
				"provider":    "Seaward Academy",
				"description": "In-service inspection and testing of electrical equipment to the IET Code of Practice.",
				"level":       "Entry",
				"duration":    "1 day",
				"price":       "£249",
			},
		},
	},
	{
		Number:   3,
		Name:     "Renewable Energy",
		Category: "renewable-energy",
		Sources: []string{
			"https://www.mcscertified.com/installer-training",
			"https://www.lclawards.co.uk/qualifications/renewables",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "Solar PV Installation and Maintenance",
				"provider":    "GTEC Training",
				"description": "Design, installation and commissioning of grid-connected solar photovoltaic systems.",
				"level":       "Level 3",
				"duration":    "5 days",
				"price":       "£1,250",
			},
			{
				"title":       "Electrical Energy Storage Systems (EESS)",
				"provider":    "LCL Awards",
				"description": "Battery storage installation for domestic and small commercial properties.",
				"level":       "Level 3",
				"duration":    "2 days",
				"price":       "£495",
			},
			{
				"title":       "EV Charging Equipment Installation (2921-31)",
				"provider":    "City & Guilds",
				"description": "Installation of electric vehicle charge points in domestic, commercial and on-street locations.",
				"level":       "Level 3",
				"duration":    "2 days",
				"price":       "£450",
				"study_mode":  "Classroom",
			},
			{
				"title":       "Heat Pump Installer Course (Air Source)",
				"provider":    "NAPIT Training",
				"description": "Low-temperature heating design and air-source heat pump installation for MCS registration.",
				"level":       "Level 3",
				"duration":    "4 days",
				"price":       "£895",
			},
			{
				"title":       "Small Scale Wind Turbine Systems",
				"provider":    "GTEC Training",
				"description": "Siting, installation and maintenance of microgeneration wind systems.",
				"level":       "Level 3",
				"duration":    "3 days",
				"price":       "£750",
			},
		},
	},
	{
		Number:   4,
		Name:     "Project Management",
		Category: "project-management",
		Sources: []string{
			"https://www.axelos.com/certifications/propath/prince2-project-management",
			"https://www.apm.org.uk/qualifications-and-training",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "PRINCE2 Foundation",
				"provider":    "AXELOS",
				"description": "Globally recognised project management methodology covering principles, themes and processes.",
				"level":       "Foundation",
				"duration":    "3 days",
				"price":       "£1,095",
				"study_mode":  "Classroom or online",
			},
			{
				"title":       "PRINCE2 Practitioner",
				"provider":    "AXELOS",
				"description": "Applying the PRINCE2 method to real project scenarios; requires Foundation as a prerequisite.",
				"level":       "Practitioner",
				"duration":    "2 days",
				"price":       "£1,250",
			},
			{
				"title":       "APM Project Management Qualification (PMQ)",
				"provider":    "Association for Project Management",
				"description": "Knowledge-based qualification covering the full project lifecycle for aspiring project managers.",
				"level":       "Level 6 equivalent",
				"duration":    "5 days plus exam",
				"price":       "£1,750",
			},
			{
				"title":       "Site Management Safety Training Scheme (SMSTS)",
				"provider":    "CITB",
				"description": "Legal, health, safety and welfare responsibilities for construction site managers.",
				"level":       "Management",
				"duration":    "5 days",
				"price":       "£595",
			},
		},
	},
	{
		Number:   5,
		Name:     "Health & Safety",
		Category: "health-safety",
		Sources: []string{
			"https://www.nebosh.org.uk/qualifications",
			"https://www.iosh.com/training-and-skills",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "NEBOSH National General Certificate",
				"provider":    "NEBOSH",
				"description": "The most widely held health and safety qualification in the UK, covering risk management across workplaces.",
				"level":       "Level 3",
				"duration":    "10 days",
				"price":       "£1,395",
			},
			{
				"title":       "IOSH Managing Safely",
				"provider":    "IOSH",
				"description": "Practical risk assessment and incident investigation for line managers in any sector.",
				"level":       "Management",
				"duration":    "3 days",
				"price":       "£495",
				"study_mode":  "Classroom or e-learning",
			},
			{
				"title":       "CSCS Health, Safety and Environment Test Preparation",
				"provider":    "CITB",
				"description": "Preparation for the operative-level HS&E test required for CSCS card applications.",
				"level":       "Entry",
				"duration":    "1 day",
				"price":       "£125",
			},
			{
				"title":       "Asbestos Awareness (Category A)",
				"provider":    "UKATA",
				"description": "Legally required awareness training for trades who may disturb asbestos-containing materials.",
				"level":       "Awareness",
				"duration":    "Half day",
				"price":       "£35",
				"study_mode":  "Online",
			},
		},
	},
	{
		Number:   6,
		Name:     "Smart Home Technology",
		Category: "smart-home",
		Sources: []string{
			"https://www.cedia.net/education",
			"https://www.knx.org/knx-en/for-professionals/training",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "CEDIA Smart Home Technician",
				"provider":    "CEDIA",
				"description": "Residential smart technology integration covering networking, control systems and AV distribution.",
				"level":       "Technician",
				"duration":    "5 days",
				"price":       "£1,500",
			},
			{
				"title":       "KNX Partner Certification",
				"provider":    "KNX Association",
				"description": "Open-standard building automation design and commissioning with ETS software.",
				"level":       "Certified Partner",
				"duration":    "5 days",
				"price":       "£1,350",
			},
			{
				"title":       "Home Automation Installer Course",
				"provider":    "Trade Skills 4U",
				"description": "Hands-on installation of lighting control, heating control and voice-assistant ecosystems.",
				"level":       "Intermediate",
				"duration":    "3 days",
				"price":       "£695",
			},
		},
	},
	{
		Number:   7,
		Name:     "Data Cabling",
		Category: "data-cabling",
		Sources: []string{
			"https://www.cnet-training.com/programs",
			"https://www.cityandguilds.com/qualifications-and-apprenticeships/it/network-cabling",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "Certified Network Cable Installer (CNCI)",
				"provider":    "CNet Training",
				"description": "Copper and fibre structured cabling installation, termination and certification testing.",
				"level":       "Level 3",
				"duration":    "5 days",
				"price":       "£1,800",
			},
			{
				"title":       "Fibre Optic Cabling and Splicing",
				"provider":    "Comms Express Academy",
				"description": "Fusion splicing, OTDR testing and fibre network fault finding for field engineers.",
				"level":       "Intermediate",
				"duration":    "3 days",
				"price":       "£950",
			},
			{
				"title":       "3667-02 Cabling for Communications Systems",
				"provider":    "City & Guilds",
				"description": "Installation and testing of telecommunications and data cabling infrastructure.",
				"level":       "Level 2",
				"duration":    "4 days",
				"price":       "£795",
			},
		},
	},
	{
		Number:   8,
		Name:     "Emergency Lighting & Fire Systems",
		Category: "emergency-lighting",
		Sources: []string{
			"https://www.fia.uk.com/training",
			"https://www.icel.co.uk/training",
		},
		Fallback: []models.RawRecord{
			{
				"title":       "Emergency Lighting Design and Installation (BS 5266)",
				"provider":    "ICEL",
				"description": "Design, installation, commissioning and maintenance of emergency lighting systems.",
				"level":       "Level 3",
				"duration":    "2 days",
				"price":       "£550",
			},
			{
				"title":       "Fire Detection and Alarm Systems (BS 5839)",
				"provider":    "FIA",
				"description": "Foundation course in fire alarm system categories, design principles and maintenance regimes.",
				"level":       "Foundation",
				"duration":    "4 days",
				"price":       "£1,100",
			},
			{
				"title":       "Fire Risk Assessment for Electrical Contractors",
				"provider":    "FPA",
				"description": "Conducting and documenting fire risk assessments with an emphasis on electrical ignition sources.",
				"level":       "Intermediate",
				"duration":    "2 days",
				"price":       "£475",
				"study_mode":  "Classroom",
			},
		},
	},
}

func init() {
	for i := range batches {
		if batches[i].Prompt == "" {
			batches[i].Prompt = fmt.Sprintf(promptTemplate, batches[i].Name)
		}
	}
}
