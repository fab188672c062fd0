package generator

// Placeholders: {place} {Service} {service} {county} {category} {state} {brand}

type sectionTemplate struct {
	id       string
	title    []string
	body     []string
	bullets  []string
	optional bool
}

var headlines = []string{
	"{Service} in {place}, done right the first time",
	"Trusted {service} pros serving {place}",
	"Local {service} for {place} homeowners",
}

var subheadlines = []string{
	"Compare vetted {category} specialists near {place} and get a written estimate in minutes.",
	"Tell us about your project and we will match you with licensed {service} contractors around {place}.",
	"Upfront pricing, verified reviews and scheduling that fits your week, all across {county}.",
}

var intros = []string{
	"Homeowners in {place} rely on {brand} to find dependable {service} without the guesswork. Every contractor we work with is screened for licensing, insurance and recent reviews.",
	"Whether the job is urgent or planned months ahead, {service} in {place} goes smoother when you know what to expect. This guide covers cost, timing, permits and how to pick the right pro.",
	"{brand} connects {place} residents with {category} specialists who know local building codes, local weather and the quirks of homes built across {county}.",
}

var requiredSections = []sectionTemplate{
	{
		id:    "overview",
		title: []string{"{Service} in {place}", "About {service} in {place}", "{Service} services near {place}"},
		body: []string{
			"{Service} is one of the most requested home projects in {place}. Most requests start with a visible problem, but a careful assessment often uncovers related issues that are cheaper to handle in the same visit. A good contractor explains what they found before quoting.",
			"Homes around {place} see a steady mix of routine maintenance and larger {service} projects. Getting a clear scope up front keeps the job on budget and avoids surprise change orders once work has started, which is where most disputes begin.",
			"From quick fixes to full replacements, {service} covers a wide range of work. In {place} the right approach depends on the age of the home, the materials already in place and how long you plan to stay in the property.",
		},
		bullets: []string{"Licensed and insured pros", "Written estimates before work begins", "Local references on request", "Clear cleanup and disposal plan"},
	},
	{
		id:    "scope",
		title: []string{"What a {service} job includes", "Scope of work", "What to expect from the work"},
		body: []string{
			"A typical {service} job includes an on-site inspection, a written scope, material selection, the work itself and a final walkthrough. Ask whether debris removal, permit fees and minor repairs uncovered during the job are part of the quote or billed separately.",
			"The scope should list every task in plain language: what gets removed, what gets installed, which materials are used and how the site is protected. Vague line items like general repairs make it hard to compare bids side by side.",
			"Before signing, confirm the scope covers preparation, the main work, cleanup and a final inspection. Reputable {category} contractors put all of this in writing so both sides know exactly what done looks like.",
		},
		bullets: []string{"Inspection and measurements", "Materials and labor", "Site protection", "Cleanup and haul-away", "Final walkthrough"},
	},
	{
		id:    "local-considerations",
		title: []string{"Local considerations in {place}", "What is different about {place}", "Planning for {place} conditions"},
		body: []string{
			"Weather, housing age and local codes all shape how {service} is done in {place}. Older homes may hide outdated work behind walls or under surfaces, and seasonal weather can narrow the windows when certain tasks are safe to schedule.",
			"Contractors who work across {county} know which inspections tend to be strict, which suppliers keep common materials in stock and how seasonal demand affects lead times. That local knowledge often matters as much as price.",
			"Neighborhood rules, lot access and parking can all affect a {service} project in {place}. Ask whether the crew has worked on similar homes nearby and how they plan to handle deliveries, dumpsters and noise restrictions.",
		},
		bullets: []string{"Seasonal scheduling windows", "Housing age and hidden conditions", "HOA or neighborhood rules", "Material availability"},
	},
	{
		id:    "cost",
		title: []string{"How much does {service} cost in {place}?", "{Service} cost guide", "Pricing and budgeting"},
		body: []string{
			"{Service} pricing depends on the size of the job, material choices, access and how much prep work is needed. Getting at least three itemized quotes is the simplest way to see what a fair price looks like for your specific home.",
			"Labor usually makes up a large share of the total, so small differences in crew size and schedule add up quickly. Ask each contractor to separate labor, materials, permits and disposal so you can compare quotes line by line.",
			"Budget for the quoted price plus a contingency for hidden damage. Many homeowners set aside an extra ten to fifteen percent. Financing options and seasonal discounts can also change the real cost of the project.",
		},
		bullets: []string{"Itemized labor and materials", "Permit and disposal fees", "Contingency for hidden damage", "Financing options"},
	},
	{
		id:    "timeline",
		title: []string{"Typical timeline", "How long does it take?", "Scheduling and duration"},
		body: []string{
			"Most {service} projects move from first call to finished work in a few weeks. The estimate and scheduling stage often takes longer than the work itself, especially during busy seasons when good crews book up early.",
			"Expect an inspection within a few days of your request, a written quote shortly after, and a start date that depends on materials and permits. Simple jobs can wrap up in a day while larger projects may run a week or more.",
			"Weather delays, special-order materials and inspection schedules are the usual reasons a {service} timeline slips. A contractor who communicates early about delays is worth more than one who promises an unrealistic start date.",
		},
		bullets: []string{"Inspection and quote", "Permits and materials", "Work days on site", "Final inspection"},
	},
	{
		id:    "permits",
		title: []string{"Permits and inspections", "Do you need a permit?", "Codes and permitting"},
		body: []string{
			"Many {service} projects require a permit, particularly when structural, electrical or plumbing work is involved. Your contractor should know the local requirements and pull the permit in their own name rather than asking you to do it.",
			"Permit rules vary between municipalities, so confirm what applies to your address before work starts. Unpermitted work can cause trouble with insurance claims and resale, and may have to be reopened for inspection later.",
			"Ask who is responsible for scheduling inspections and what happens if an inspector requests changes. A well-run {category} contractor builds inspection time into the schedule and handles corrections without extra charges.",
		},
		bullets: []string{"Contractor pulls the permit", "Inspection scheduling", "Corrections handled in scope", "Copies kept for your records"},
	},
	{
		id:    "how-to-choose",
		title: []string{"How to choose a {service} pro", "Choosing the right contractor", "What to look for in a contractor"},
		body: []string{
			"Look for a contractor with an active license, proof of insurance and recent reviews from jobs similar to yours. Ask for references, a written warranty and a payment schedule tied to completed milestones rather than large upfront deposits.",
			"The lowest bid is not always the best value. Compare what each quote includes, how long the crew has been in business and how quickly they respond to questions. Good communication before the job is a strong signal of how the job will go.",
			"Verify licensing and insurance directly, read reviews across more than one platform and ask how change orders are handled. A contractor who explains tradeoffs honestly will usually steer you toward the right {service} solution.",
		},
		bullets: []string{"Active license and insurance", "Recent, relevant reviews", "Written warranty", "Milestone-based payments"},
	},
	{
		id:    "process",
		title: []string{"Our process", "How it works", "From request to finished job"},
		body: []string{
			"Tell us about your project, and we match you with vetted local pros. You compare estimates, choose the contractor you trust and schedule the work. After the job is complete we follow up to make sure everything met your expectations.",
			"Start with a short questionnaire about the work you need. Within a day you hear from qualified contractors, review their estimates side by side and book the one that fits your budget and schedule best.",
			"Our estimator asks a few questions about the job, then routes your request to available {category} specialists. You stay in control of who visits your home, which quote you accept and when the work begins.",
		},
		bullets: []string{"Describe the project", "Compare estimates", "Book your pro", "Follow-up after completion"},
	},
}

var optionalSections = []sectionTemplate{
	{
		id:       "warranties",
		optional: true,
		title:    []string{"Warranties and guarantees", "Protecting your investment"},
		body: []string{
			"Ask for both a workmanship warranty from the contractor and the manufacturer warranty on any materials. Get the terms in writing, including what voids coverage and how claims are handled if something fails years later.",
			"A solid warranty covers labor as well as materials. Confirm how long coverage lasts, whether it transfers to a new owner and who you call first if you notice a problem after the {service} work is finished.",
		},
		bullets: []string{"Workmanship coverage", "Manufacturer coverage", "Transferability"},
	},
	{
		id:       "materials",
		optional: true,
		title:    []string{"Choosing materials", "Material options"},
		body: []string{
			"Material choice drives both price and lifespan. Your contractor should explain the tradeoffs between budget, mid-range and premium options and recommend what makes sense for the age and style of your home.",
			"Higher-grade materials cost more up front but often last longer and carry better warranties. Ask to see samples, compare expected lifespans and check that the products are rated for the local climate.",
		},
		bullets: []string{"Budget vs premium options", "Expected lifespan", "Climate ratings"},
	},
	{
		id:       "common-mistakes",
		optional: true,
		title:    []string{"Common mistakes to avoid", "Mistakes homeowners make"},
		body: []string{
			"The most common mistakes are hiring on price alone, skipping the written contract and paying too much before work starts. Waiting too long on small problems is another, since minor issues tend to grow into expensive repairs.",
			"Avoid contractors who pressure you to sign the same day, refuse to provide references or skip permits to save time. Those shortcuts usually cost more later when the work has to be corrected.",
		},
		bullets: []string{"Hiring on price alone", "No written contract", "Large upfront deposits"},
	},
}

type faqTemplate struct {
	question string
	answer   string
}

var faqPool = []faqTemplate{
	{"How much does {service} cost in {place}?", "Pricing depends on the size of the job, materials and access. Most homeowners in {place} collect three itemized quotes to understand the fair range for their home before choosing a contractor."},
	{"How long does {service} take?", "Small jobs are often finished in a day. Larger projects can take a week or more once permits, material deliveries and inspections are included in the schedule."},
	{"Do I need a permit for {service} in {place}?", "Many projects need a permit, especially when structural, electrical or plumbing work is involved. Your contractor should confirm the rules for your address and pull the permit."},
	{"How do I know a contractor is qualified?", "Check for an active license, proof of insurance and recent reviews. Ask for references from similar jobs and a written warranty covering workmanship."},
	{"Can I get a free estimate?", "Yes. Answer a few questions in our estimator and local pros will reach out with free, no-obligation estimates for your {service} project."},
	{"What should a {service} quote include?", "A good quote separates labor, materials, permits and disposal, lists the scope in plain language and states the payment schedule and warranty terms."},
	{"Is {service} covered by homeowners insurance?", "Sudden damage from storms or accidents is often covered, while wear and tear usually is not. Review your policy and document damage with photos before work starts."},
	{"When is the best time of year for {service}?", "Mild seasons are usually easiest to schedule. Booking early helps, since experienced crews around {place} fill their calendars quickly during peak demand."},
	{"Should I repair or replace?", "It depends on age, extent of damage and how long you plan to stay. A trustworthy pro will explain both options and the long-term cost of each."},
	{"Do contractors offer financing?", "Many {category} contractors offer financing or payment plans. Compare the total cost of financing with other options before you sign."},
	{"What happens if the contractor finds hidden damage?", "The contractor should stop, show you the problem and provide a written change order with pricing before doing extra work."},
	{"How do I prepare my home for the work?", "Clear the work area, protect valuables, plan for pets and confirm where the crew will park and stage materials before the start date."},
	{"What warranty should I expect?", "Look for a workmanship warranty from the contractor plus the manufacturer warranty on materials, both provided in writing."},
	{"How quickly can a pro start?", "Start dates vary with demand and permits. Emergency work can often begin within days, while planned projects usually start within a few weeks."},
}

var ctaTemplates = []struct {
	title string
	body  string
	label string
}{
	{"Get a free {service} estimate", "Answer a few quick questions and compare quotes from vetted pros in {place}.", "Start my estimate"},
	{"Talk to a local {category} pro", "Prefer to talk it through? Get matched with a specialist who works in {county}.", "Find a pro"},
}

var descriptions = []string{
	"Compare {service} pros in {place}. See typical costs, timelines, permit requirements and tips for choosing a licensed contractor, then get free estimates.",
	"Need {service} in {place}? Learn what the job includes, what it costs and how to pick a trusted local pro. Get matched with vetted contractors today.",
	"{Service} in {place}: pricing guide, permit basics, common mistakes and a free estimate from licensed {category} specialists serving {county}.",
}
