package step

// MandatoryInputs are the files a working directory must contain before
// the pipeline can start from scratch.
var MandatoryInputs = []string{
	"protein_only.pdb",
	"ligand.gro",
	"ligand.itp",
	"minim.mdp",
	"nvt.mdp",
	"npt.mdp",
	"md.mdp",
}

// defaultSteps is the GROMACS protein-ligand workflow, in run order.
// Steps 5 and 7-9 chain grompp and mdrun in a single shell conjunction;
// a nonzero exit from either stage fails the whole step.
var defaultSteps = []Step{
	{
		ID:          1,
		Name:        "Generate Protein Topology",
		Command:     "gmx pdb2gmx -f protein_only.pdb -o protein.gro -water spce -ignh",
		Produces:    []string{"protein.gro", "topol.top"},
		Requires:    []string{"protein_only.pdb"},
		Interactive: true,
	},
	{
		ID:       2,
		Name:     "Insert Ligand",
		Command:  "gmx insert-molecules -f protein.gro -ci ligand.gro -o complex.gro -nmol 1",
		Produces: []string{"complex.gro"},
		Requires: []string{"protein.gro", "ligand.gro"},
	},
	{
		ID:       3,
		Name:     "Define Simulation Box",
		Command:  "gmx editconf -f complex.gro -o complex_box.gro -c -d 1.0 -bt cubic",
		Produces: []string{"complex_box.gro"},
		Requires: []string{"complex.gro"},
	},
	{
		ID:       4,
		Name:     "Solvate System",
		Command:  "gmx solvate -cp complex_box.gro -cs spc216.gro -o complex_solv.gro -p topol.top",
		Produces: []string{"complex_solv.gro"},
		Requires: []string{"complex_box.gro", "topol.top", "ligand.itp"},
		Manual: &ManualIntervention{
			File: "topol.top",
			Actions: []string{
				`Add: #include "ligand.itp" after the force field include`,
				"Add the ligand to the [ molecules ] section",
			},
		},
	},
	{
		ID:       5,
		Name:     "Energy Minimization",
		Command:  "gmx grompp -f minim.mdp -c complex_solv.gro -p topol.top -o em.tpr -maxwarn 1 && gmx mdrun -v -deffnm em",
		Produces: []string{"em.gro", "em.edr"},
		Requires: []string{"complex_solv.gro", "topol.top", "minim.mdp"},
	},
	{
		ID:          6,
		Name:        "Index Generation",
		Command:     "gmx make_ndx -f em.gro -o index.ndx",
		Produces:    []string{"index.ndx"},
		Requires:    []string{"em.gro"},
		Interactive: true,
	},
	{
		ID:       7,
		Name:     "NVT Equilibration",
		Command:  "gmx grompp -f nvt.mdp -c em.gro -r em.gro -p topol.top -n index.ndx -o nvt.tpr -maxwarn 1 && gmx mdrun -v -deffnm nvt",
		Produces: []string{"nvt.gro", "nvt.edr"},
		Requires: []string{"em.gro", "topol.top", "nvt.mdp", "index.ndx"},
	},
	{
		ID:       8,
		Name:     "NPT Equilibration",
		Command:  "gmx grompp -f npt.mdp -c nvt.gro -r nvt.gro -t nvt.cpt -p topol.top -n index.ndx -o npt.tpr -maxwarn 1 && gmx mdrun -v -deffnm npt",
		Produces: []string{"npt.gro", "npt.edr"},
		Requires: []string{"nvt.gro", "nvt.cpt", "topol.top", "npt.mdp", "index.ndx"},
	},
	{
		ID:       9,
		Name:     "Production MD",
		Command:  "gmx grompp -f md.mdp -c npt.gro -t npt.cpt -p topol.top -n index.ndx -o md.tpr -maxwarn 1 && gmx mdrun -v -deffnm md",
		Produces: []string{"md.xtc", "md.edr", "md.gro"},
		Requires: []string{"npt.gro", "npt.cpt", "topol.top", "md.mdp", "index.ndx"},
	},
}

// chainPrereqs builds the observed dependency shape: each step depends
// on the one before it. The registry supports arbitrary DAGs; this is
// just the default wiring.
func chainPrereqs(steps []Step) map[ID][]ID {
	m := make(map[ID][]ID, len(steps))
	for i := 1; i < len(steps); i++ {
		m[steps[i].ID] = []ID{steps[i-1].ID}
	}
	return m
}

// DefaultRegistry returns the built-in GROMACS workflow registry.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultSteps, chainPrereqs(defaultSteps))
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is
		// a programming error.
		panic(err)
	}
	return r
}
